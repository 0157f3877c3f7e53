package wire

import (
	"context"
	"errors"
	"github.com/heyvito/goscar/internal/fsm"
	"github.com/heyvito/goscar/internal/proto"
	"go.uber.org/zap"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// ConnDelegate receives the frames read from a single Conn. Frames are
// delivered one at a time, in arrival order, from the routine serving the
// connection.
type ConnDelegate interface {
	// HandleFrame handles a complete frame. Returning an error closes the
	// connection.
	HandleFrame(ctx context.Context, frame *proto.Frame) error

	// HandleClose is called once the connection stops being served.
	HandleClose()
}

// Conn is a FLAP connection to a single client.
type Conn struct {
	log         *zap.Logger
	conn        net.Conn
	readTimeout time.Duration
	decoder     fsm.Stream[proto.Frame]
	isClosed    atomic.Bool
	writeMu     sync.Mutex
}

// NewConn wraps conn. When readTimeout is positive, a connection that stays
// silent for longer is closed.
func NewConn(log *zap.Logger, conn net.Conn, readTimeout time.Duration) *Conn {
	return &Conn{
		log:         log.With(zap.String("client", conn.RemoteAddr().String())),
		conn:        conn,
		readTimeout: readTimeout,
		decoder:     proto.FLAPDecoder.New(),
	}
}

// Log returns a logger annotated with the remote address.
func (c *Conn) Log() *zap.Logger { return c.log }

// RemoteAddr returns the remote address as a string.
func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// WriteFrame writes frame in full. A failed write closes the connection.
func (c *Conn) WriteFrame(frame proto.Frame) error {
	if c.isClosed.Load() {
		return net.ErrClosed
	}
	size := frame.RequiredSize()
	buf := make([]byte, size)
	frame.Encode(buf)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	written := 0
	for written < size {
		n, err := c.conn.Write(buf[written:])
		if err != nil {
			c.log.Debug("Failed writing frame", zap.Error(err))
			c.Close()
			return err
		}
		written += n
	}
	return nil
}

// Close closes the socket. It is safe to call Close multiple times.
func (c *Conn) Close() {
	if c.isClosed.Swap(true) {
		return
	}

	if err := c.conn.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return
		}
		c.log.Error("Error closing client", zap.Error(err))
	}
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool { return c.isClosed.Load() }

// Serve reads frames and hands them to delegate until the connection is
// closed, the peer goes away, a frame fails to decode, or ctx is done. It
// blocks the calling routine.
func (c *Conn) Serve(ctx context.Context, delegate ConnDelegate) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer delegate.HandleClose()
	defer c.Close()

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	buf := make([]byte, 4096)
	for {
		if c.readTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		n, err := c.conn.Read(buf)
		for _, b := range buf[:n] {
			frame, decErr := c.decoder.Feed(b)
			if decErr != nil {
				c.log.Warn("Failed decoding frame, closing connection", zap.Error(decErr))
				return
			}
			if frame == nil {
				continue
			}
			if err := delegate.HandleFrame(ctx, frame); err != nil {
				return
			}
			if c.isClosed.Load() {
				return
			}
		}

		if err != nil {
			switch {
			case c.isClosed.Load() && errors.Is(err, net.ErrClosed):
				// Closed locally while a read was pending.
			case errors.Is(err, io.EOF):
				if c.decoder.Pending() {
					c.log.Warn("Peer disconnected mid-frame")
				} else {
					c.log.Debug("Peer disconnected")
				}
			case errors.Is(err, os.ErrDeadlineExceeded):
				c.log.Info("Read timeout elapsed, closing connection", zap.Duration("timeout", c.readTimeout))
			default:
				c.log.Error("Failed reading", zap.Error(err))
			}
			return
		}
	}
}
