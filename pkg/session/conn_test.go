package session

import (
	"errors"
	"syscall"

	"github.com/appnet-org/netplay/pkg/stream"
	"github.com/appnet-org/netplay/pkg/transport"
)

type datagram struct {
	from transport.Address
	data []byte
}

// memNet is a lossless in-order datagram network keyed by full address.
type memNet struct {
	queues map[transport.Address][]datagram
}

func newMemNet() *memNet {
	return &memNet{queues: make(map[transport.Address][]datagram)}
}

func (n *memNet) inject(to, from transport.Address, data []byte) {
	n.queues[to] = append(n.queues[to], datagram{from: from, data: append([]byte(nil), data...)})
}

type memConn struct {
	net     *memNet
	local   transport.Address
	open    bool
	openErr error
}

func (n *memNet) conn() *memConn {
	return &memConn{net: n}
}

func (c *memConn) Open(local transport.Address) error {
	if c.openErr != nil {
		return c.openErr
	}
	if c.open {
		return transport.ErrAlreadyOpen
	}
	if local.IsUnspecified() {
		local.SetHost(127, 0, 0, 1)
	}
	c.local, c.open = local, true
	return nil
}

func (c *memConn) SendTo(to transport.Address, buf *stream.Buffer) error {
	if !c.open {
		return transport.ErrNotOpen
	}
	c.net.inject(to, c.local, buf.Bytes())
	return nil
}

func (c *memConn) RecvFrom(from *transport.Address, buf *stream.Buffer) error {
	if !c.open {
		return transport.ErrNotOpen
	}
	q := c.net.queues[c.local]
	if len(q) == 0 {
		return &transport.OpError{Op: "recv", Code: transport.CodeWouldBlock, Err: syscall.EAGAIN}
	}
	d := q[0]
	c.net.queues[c.local] = q[1:]

	buf.Reset()
	n := copy(buf.Raw(), d.data)
	*from = d.from
	return buf.SetLen(n)
}

func (c *memConn) LocalAddr() (transport.Address, error) {
	if !c.open {
		return transport.Address{}, transport.ErrNotOpen
	}
	return c.local, nil
}

func (c *memConn) Close() error {
	c.open = false
	return nil
}

var errBind = errors.New("bind: address in use")
