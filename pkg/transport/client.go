package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/log"
)

// DefaultConnectTimeout applies when the context has no deadline.
const DefaultConnectTimeout = 10 * time.Second

// ClientConn is a client connection to a device server.
type ClientConn struct {
	conn      net.Conn
	framer    *Framer
	closeCh   chan struct{}
	closeOnce sync.Once
	readMu    sync.Mutex
}

// Dial connects to address.
func Dial(ctx context.Context, address string, maxSize uint32) (*ClientConn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return &ClientConn{
		conn:    conn,
		framer:  NewFramer(conn, maxSize),
		closeCh: make(chan struct{}),
	}, nil
}

// LocalAddr returns the local address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the server address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetLogger captures the frames of this connection under connID.
func (c *ClientConn) SetLogger(logger log.Logger, connID string) {
	c.framer.SetLogger(logger, connID)
}

// Send writes one message.
func (c *ClientConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive reads one message. A positive timeout bounds the wait.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	return c.framer.ReadFrame()
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
