//go:build linux || darwin

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func errnoCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case unix.EBADF:
		return CodeBadFileHandle
	case unix.ENOMEM:
		return CodeNotEnoughMemory
	case unix.EINTR:
		return CodeInterruptedCall
	case unix.EACCES, unix.EPERM:
		return CodeSocketAccessDenied
	case unix.EFAULT:
		return CodeBadAddress
	case unix.EINVAL:
		return CodeInvalidArgument
	case unix.EMFILE, unix.ENFILE:
		return CodeTooManyOpenFiles
	case unix.EAGAIN:
		return CodeWouldBlock
	case unix.EINPROGRESS:
		return CodeInProgress
	case unix.EALREADY:
		return CodeAlreadyInProgress
	case unix.ENOTSOCK:
		return CodeHandleNonSocket
	case unix.EDESTADDRREQ:
		return CodeDestinationAddressRequired
	case unix.EMSGSIZE:
		return CodeMessageTooLong
	case unix.EPROTOTYPE:
		return CodeWrongProtocolType
	case unix.ENOPROTOOPT:
		return CodeBadProtocolOption
	case unix.EPROTONOSUPPORT:
		return CodeProtocolNotSupported
	case unix.ESOCKTNOSUPPORT:
		return CodeSocketTypeNotSupported
	case unix.EOPNOTSUPP:
		return CodeOperationNotSupported
	case unix.EPFNOSUPPORT:
		return CodeProtocolFamilyNotSupported
	case unix.EAFNOSUPPORT:
		return CodeAddressFamilyNotSupported
	case unix.EADDRINUSE:
		return CodeAddressInUse
	case unix.EADDRNOTAVAIL:
		return CodeAddressNotAvailable
	case unix.ENETDOWN:
		return CodeNetworkDown
	case unix.ENETUNREACH:
		return CodeNetworkUnreachable
	case unix.ENETRESET:
		return CodeNetworkDroppedConnection
	case unix.ECONNABORTED:
		return CodeConnectionAborted
	case unix.ECONNRESET:
		return CodeConnectionResetByPeer
	case unix.ENOBUFS:
		return CodeNoBufferSpace
	case unix.EISCONN:
		return CodeAlreadyConnected
	case unix.ENOTCONN:
		return CodeNotConnected
	case unix.ESHUTDOWN, unix.EPIPE:
		return CodeSendShutdown
	case unix.ETOOMANYREFS:
		return CodeTooManyReferences
	case unix.ETIMEDOUT:
		return CodeConnectionTimedOut
	case unix.ECONNREFUSED:
		return CodeConnectionRefused
	case unix.ELOOP:
		return CodeCannotTranslateName
	case unix.ENAMETOOLONG:
		return CodeNameTooLong
	case unix.EHOSTDOWN:
		return CodeHostDown
	case unix.EHOSTUNREACH:
		return CodeHostUnreachable
	case unix.EUSERS:
		return CodeProcessLimit
	case unix.ENODATA:
		return CodeNoData
	}
	return CodeUnknown
}
