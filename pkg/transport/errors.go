package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorCode is a platform-independent classification of socket failures.
type ErrorCode int

const (
	CodeNoError ErrorCode = iota
	CodeInvalidHandle
	CodeNotEnoughMemory
	CodeInvalidParameter
	CodeOperationAborted
	CodeInterruptedCall
	CodeBadFileHandle
	CodeSocketAccessDenied
	CodeBadAddress
	CodeInvalidArgument
	CodeTooManyOpenFiles
	CodeWouldBlock
	CodeInProgress
	CodeAlreadyInProgress
	CodeHandleNonSocket
	CodeDestinationAddressRequired
	CodeMessageTooLong
	CodeWrongProtocolType
	CodeBadProtocolOption
	CodeProtocolNotSupported
	CodeSocketTypeNotSupported
	CodeOperationNotSupported
	CodeProtocolFamilyNotSupported
	CodeAddressFamilyNotSupported
	CodeAddressInUse
	CodeAddressNotAvailable
	CodeNetworkDown
	CodeNetworkUnreachable
	CodeNetworkDroppedConnection
	CodeConnectionAborted
	CodeConnectionResetByPeer
	CodeNoBufferSpace
	CodeAlreadyConnected
	CodeNotConnected
	CodeSendShutdown
	CodeTooManyReferences
	CodeConnectionTimedOut
	CodeConnectionRefused
	CodeCannotTranslateName
	CodeNameTooLong
	CodeHostDown
	CodeHostUnreachable
	CodeProcessLimit
	CodeSystemNotReady
	CodeVersionNotSupported
	CodeNotInitialised
	CodeDisconnectInProgress
	CodeHostNotFound
	CodeTryAgain
	CodeNoRecovery
	CodeNoData
	CodeRemoteDisconnect
	CodeSelectTimeout
	CodeUnknown
)

var codeNames = [...]string{
	CodeNoError:                    "no error",
	CodeInvalidHandle:              "invalid handle",
	CodeNotEnoughMemory:            "not enough memory",
	CodeInvalidParameter:           "invalid parameter",
	CodeOperationAborted:           "operation aborted",
	CodeInterruptedCall:            "interrupted call",
	CodeBadFileHandle:              "bad file handle",
	CodeSocketAccessDenied:         "socket access denied",
	CodeBadAddress:                 "bad address",
	CodeInvalidArgument:            "invalid argument",
	CodeTooManyOpenFiles:           "too many open files",
	CodeWouldBlock:                 "operation would block",
	CodeInProgress:                 "operation in progress",
	CodeAlreadyInProgress:          "operation already in progress",
	CodeHandleNonSocket:            "handle is not a socket",
	CodeDestinationAddressRequired: "destination address required",
	CodeMessageTooLong:             "message too long",
	CodeWrongProtocolType:          "wrong protocol type",
	CodeBadProtocolOption:          "bad protocol option",
	CodeProtocolNotSupported:       "protocol not supported",
	CodeSocketTypeNotSupported:     "socket type not supported",
	CodeOperationNotSupported:      "operation not supported",
	CodeProtocolFamilyNotSupported: "protocol family not supported",
	CodeAddressFamilyNotSupported:  "address family not supported",
	CodeAddressInUse:               "address in use",
	CodeAddressNotAvailable:        "address not available",
	CodeNetworkDown:                "network down",
	CodeNetworkUnreachable:         "network unreachable",
	CodeNetworkDroppedConnection:   "network dropped connection",
	CodeConnectionAborted:          "connection aborted",
	CodeConnectionResetByPeer:      "connection reset by peer",
	CodeNoBufferSpace:              "no buffer space",
	CodeAlreadyConnected:           "already connected",
	CodeNotConnected:               "not connected",
	CodeSendShutdown:               "send after shutdown",
	CodeTooManyReferences:          "too many references",
	CodeConnectionTimedOut:         "connection timed out",
	CodeConnectionRefused:          "connection refused",
	CodeCannotTranslateName:        "cannot translate name",
	CodeNameTooLong:                "name too long",
	CodeHostDown:                   "host down",
	CodeHostUnreachable:            "host unreachable",
	CodeProcessLimit:               "process limit reached",
	CodeSystemNotReady:             "network subsystem not ready",
	CodeVersionNotSupported:        "version not supported",
	CodeNotInitialised:             "network not initialised",
	CodeDisconnectInProgress:       "disconnect in progress",
	CodeHostNotFound:               "host not found",
	CodeTryAgain:                   "try again",
	CodeNoRecovery:                 "non-recoverable error",
	CodeNoData:                     "no data",
	CodeRemoteDisconnect:           "remote disconnect",
	CodeSelectTimeout:              "select timeout",
	CodeUnknown:                    "unknown error",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("error code %d", int(c))
}

// IsNonCritical reports whether a failure with this code is an expected
// condition of a non-blocking endpoint rather than a real fault.
func IsNonCritical(code ErrorCode) bool {
	return code == CodeWouldBlock || code == CodeSelectTimeout
}

// IsNonCriticalErr classifies err with CodeOf and reports IsNonCritical.
func IsNonCriticalErr(err error) bool {
	return err != nil && IsNonCritical(CodeOf(err))
}

var (
	// ErrAlreadyOpen is returned when opening an endpoint that holds a socket.
	ErrAlreadyOpen = errors.New("endpoint already open")
	// ErrNotOpen is returned when using an endpoint without a socket.
	ErrNotOpen = errors.New("endpoint not open")
	// ErrPartialSend is returned when the OS accepted zero bytes of a datagram.
	ErrPartialSend = errors.New("no bytes accepted for send")
)

// OpError describes a failed endpoint operation.
type OpError struct {
	Op   string
	Addr Address
	Code ErrorCode
	Err  error
}

func (e *OpError) Error() string {
	if e.Addr == (Address{}) {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Addr, e.Code, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func newOpError(op string, addr Address, err error) *OpError {
	return &OpError{Op: op, Addr: addr, Code: CodeOf(err), Err: err}
}

// CodeOf maps an error to its portable code. Errors that carry no OS
// information map to CodeUnknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeNoError
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Code
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == 0 {
			return CodeNoError
		}
		return errnoCode(errno)
	}

	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return CodeSelectTimeout
	case errors.Is(err, net.ErrClosed), errors.Is(err, ErrNotOpen):
		return CodeBadFileHandle
	case errors.Is(err, ErrAlreadyOpen):
		return CodeAlreadyConnected
	case errors.Is(err, ErrPartialSend):
		return CodeNoBufferSpace
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return CodeHostNotFound
		case dnsErr.IsTemporary, dnsErr.IsTimeout:
			return CodeTryAgain
		default:
			return CodeNoRecovery
		}
	}

	return CodeUnknown
}
