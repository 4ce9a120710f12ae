//go:build linux || darwin

package transport

import (
	"context"
	"encoding/binary"
	"net"
	"syscall"

	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/stream"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// DefaultTOS marks outgoing datagrams for expedited forwarding.
const DefaultTOS = 0xb8

// UDPTransport is a non-blocking IPv4 datagram endpoint. Every call returns
// immediately; an empty receive queue is reported as CodeWouldBlock.
// It is not safe for concurrent use.
type UDPTransport struct {
	conn    *net.UDPConn
	raw     syscall.RawConn
	local   Address
	tos     int
	lastErr ErrorCode
}

// NewUDPTransport creates a closed endpoint.
func NewUDPTransport() *UDPTransport {
	return &UDPTransport{tos: DefaultTOS}
}

// SetTOS sets the IP type-of-service byte applied on the next Open. Zero
// leaves the system default.
func (t *UDPTransport) SetTOS(tos int) {
	t.tos = tos
}

// IsOpen reports whether the endpoint holds a socket.
func (t *UDPTransport) IsOpen() bool {
	return t.conn != nil
}

// Open binds a socket to local with address reuse enabled. An unspecified
// host binds every interface and port 0 picks an ephemeral port.
func (t *UDPTransport) Open(local Address) error {
	if t.conn != nil {
		return t.fail("open", local, ErrAlreadyOpen)
	}

	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var serr error
			if err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return serr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", local.String())
	if err != nil {
		return t.fail("open", local, err)
	}
	conn := pc.(*net.UDPConn)

	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return t.fail("open", local, err)
	}

	if t.tos != 0 {
		if err := ipv4.NewConn(conn).SetTOS(t.tos); err != nil {
			logging.Warn("Failed to set IP TOS", zap.Int("tos", t.tos), zap.Error(err))
		}
	}

	t.conn, t.raw = conn, raw
	if bound, err := t.LocalAddr(); err == nil {
		t.local = bound
	} else {
		t.local = local
	}
	t.lastErr = CodeNoError

	logging.Info("UDP endpoint open", zap.Stringer("local", t.local))
	return nil
}

// SendTo transmits the written region of buf as one datagram. A send that
// makes no progress fails with CodeNoBufferSpace. An empty buffer sends
// nothing.
func (t *UDPTransport) SendTo(to Address, buf *stream.Buffer) error {
	if t.conn == nil {
		return t.fail("send", to, ErrNotOpen)
	}

	data := buf.Bytes()
	sa := to.sockaddr()
	for sent := 0; sent < len(data); {
		var n int
		var serr error
		if err := t.raw.Write(func(fd uintptr) bool {
			n, serr = unix.SendmsgN(int(fd), data[sent:], nil, sa, unix.MSG_DONTWAIT)
			return true
		}); err != nil {
			return t.fail("send", to, err)
		}
		if serr != nil {
			return t.fail("send", to, serr)
		}
		if n <= 0 {
			return t.fail("send", to, ErrPartialSend)
		}
		sent += n
	}

	t.lastErr = CodeNoError
	return nil
}

// RecvFrom reads one pending datagram into buf and stores the sender in from.
// With nothing pending it fails with CodeWouldBlock and leaves buf empty.
func (t *UDPTransport) RecvFrom(from *Address, buf *stream.Buffer) error {
	if t.conn == nil {
		return t.fail("recv", Address{}, ErrNotOpen)
	}

	buf.Reset()
	var n int
	var sa unix.Sockaddr
	var rerr error
	if err := t.raw.Read(func(fd uintptr) bool {
		n, sa, rerr = unix.Recvfrom(int(fd), buf.Raw(), unix.MSG_DONTWAIT)
		return true
	}); err != nil {
		return t.fail("recv", Address{}, err)
	}
	if rerr != nil {
		return t.fail("recv", Address{}, rerr)
	}

	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		*from = addressFromSockaddr(sa4)
	}
	if err := buf.SetLen(n); err != nil {
		return t.fail("recv", *from, err)
	}

	t.lastErr = CodeNoError
	return nil
}

// LocalAddr returns the address the socket is bound to.
func (t *UDPTransport) LocalAddr() (Address, error) {
	if t.conn == nil {
		return Address{}, t.fail("getsockname", Address{}, ErrNotOpen)
	}

	var sa unix.Sockaddr
	var serr error
	if err := t.raw.Control(func(fd uintptr) {
		sa, serr = unix.Getsockname(int(fd))
	}); err != nil {
		return Address{}, t.fail("getsockname", Address{}, err)
	}
	if serr != nil {
		return Address{}, t.fail("getsockname", Address{}, serr)
	}

	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Address{}, t.fail("getsockname", Address{}, unix.EAFNOSUPPORT)
	}
	return addressFromSockaddr(sa4), nil
}

// LastError returns the code of the most recent operation.
func (t *UDPTransport) LastError() ErrorCode {
	return t.lastErr
}

// Close releases the socket. Closing a closed endpoint is a no-op.
func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn, t.raw = nil, nil
	if err != nil {
		return t.fail("close", t.local, err)
	}

	logging.Info("UDP endpoint closed", zap.Stringer("local", t.local))
	return nil
}

func (t *UDPTransport) fail(op string, addr Address, err error) error {
	opErr := newOpError(op, addr, err)
	t.lastErr = opErr.Code
	if !IsNonCritical(opErr.Code) {
		logging.Debug("UDP endpoint error",
			zap.String("op", op),
			zap.Stringer("code", opErr.Code),
			zap.Error(err))
	}
	return opErr
}

func (a Address) sockaddr() *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(a.Port), Addr: a.Octets()}
}

func addressFromSockaddr(sa *unix.SockaddrInet4) Address {
	return Address{Host: binary.BigEndian.Uint32(sa.Addr[:]), Port: uint16(sa.Port)}
}
