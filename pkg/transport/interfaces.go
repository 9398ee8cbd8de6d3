package transport

import (
	"context"
	"net"
	"time"
)

// Conn is the client side of a control connection. Implemented by ClientConn.
type Conn interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
	RemoteAddr() net.Addr
	Close() error
}

// ControlServer is a listening control endpoint. Implemented by Server.
type ControlServer interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
	Broadcast(msg []byte)
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

var (
	_ Conn            = (*ClientConn)(nil)
	_ ControlServer   = (*Server)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
