package handlers

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/dispatch"
	"github.com/heyvito/goscar/internal/fsm"
	"github.com/heyvito/goscar/internal/proto"
	"github.com/heyvito/goscar/internal/store"
	"github.com/heyvito/goscar/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBOSAddress = "127.0.0.1:5191"

var testKey = []byte("0123456789abcdef")

func testCookies(t *testing.T) *core.Cookies {
	t.Helper()
	sealer, err := core.NewSealer(testKey)
	require.NoError(t, err)
	return core.NewCookies(sealer, time.Minute)
}

func testStore(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.Create(context.Background(), "neato", "neato@example.com", "password"))
	return s
}

type loginCounter struct {
	mu      sync.Mutex
	results []string
}

func (l *loginCounter) LoginAttempt(result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

func (l *loginCounter) Results() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.results...)
}

func newAuthService(t *testing.T, opts AuthOptions) (*Service, *core.Registry) {
	t.Helper()
	if opts.Store == nil {
		opts.Store = testStore(t)
	}
	if opts.Cookies == nil {
		opts.Cookies = testCookies(t)
	}
	if opts.BOSAddress == "" {
		opts.BOSAddress = testBOSAddress
	}
	auth := NewAuth(opts)
	router := dispatch.NewRouter(zap.NewNop())
	auth.Register(router)
	reg := &core.Registry{}
	return NewService(ServiceOptions{
		Name:     "auth",
		Router:   router,
		SignOn:   auth.SignOn,
		Registry: reg,
	}), reg
}

func newBOSService(t *testing.T, opts BOSOptions, sessOpts core.SessionOptions) (*Service, *core.Registry) {
	t.Helper()
	if opts.Cookies == nil {
		opts.Cookies = testCookies(t)
	}
	bos := NewBOS(opts)
	router := dispatch.NewRouter(zap.NewNop())
	bos.Register(router)
	reg := &core.Registry{}
	return NewService(ServiceOptions{
		Name:     "bos",
		Router:   router,
		SignOn:   bos.SignOn,
		Registry: reg,
		Session:  sessOpts,
	}), reg
}

// client drives a Service over an in-memory pipe, playing the part of an
// OSCAR client.
type client struct {
	t       *testing.T
	conn    net.Conn
	decoder fsm.Stream[proto.Frame]
	pending []byte
	seq     uint16
	reqID   uint32
	done    chan struct{}
}

// dial connects to svc and consumes the greeting SIGNON frame.
func dial(t *testing.T, svc *Service) *client {
	t.Helper()
	server, conn := net.Pipe()
	c := &client{
		t:       t,
		conn:    conn,
		decoder: proto.FLAPDecoder.New(),
		done:    make(chan struct{}),
	}

	wc := wire.NewConn(zap.NewNop(), server, 0)
	go func() {
		defer close(c.done)
		delegate, err := svc.HandleConnect(wc)
		if err != nil {
			wc.Close()
			return
		}
		wc.Serve(context.Background(), delegate)
	}()
	t.Cleanup(func() {
		_ = conn.Close()
		<-c.done
	})

	greeting := c.read()
	require.Equal(t, proto.FrameSignOn, greeting.Type)
	require.Equal(t, uint16(0), greeting.Sequence)
	require.Equal(t, []byte{0, 0, 0, 1}, greeting.Payload)
	return c
}

func (c *client) send(t proto.FrameType, payload []byte) {
	c.t.Helper()
	f := proto.Frame{FLAP: proto.FLAP{Type: t, Sequence: c.seq}, Payload: payload}
	c.seq++
	buf := make([]byte, f.RequiredSize())
	f.Encode(buf)
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := c.conn.Write(buf)
	require.NoError(c.t, err)
}

func (c *client) signOn(tlvs ...proto.TLV) {
	c.t.Helper()
	c.send(proto.FrameSignOn, proto.NewWriter().U32(1).TLVs(tlvs...).Bytes())
}

// request sends a SNAC and returns the request ID it used.
func (c *client) request(family proto.Family, subtype uint16, body []byte) uint32 {
	c.t.Helper()
	c.reqID++
	msg := proto.Message{
		SNAC: proto.SNAC{Family: family, Subtype: subtype, RequestID: c.reqID},
		Body: body,
	}
	buf := make([]byte, msg.RequiredSize())
	msg.Encode(buf)
	c.send(proto.FrameData, buf)
	return c.reqID
}

func (c *client) read() *proto.Frame {
	c.t.Helper()
	buf := make([]byte, 4096)
	for {
		for len(c.pending) > 0 {
			b := c.pending[0]
			c.pending = c.pending[1:]
			f, err := c.decoder.Feed(b)
			require.NoError(c.t, err)
			if f != nil {
				return f
			}
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := c.conn.Read(buf)
		require.NoError(c.t, err)
		c.pending = append(c.pending, buf[:n]...)
	}
}

// readSNAC reads a DATA frame and decodes its SNAC.
func (c *client) readSNAC() (*proto.Frame, proto.SNAC, []byte) {
	c.t.Helper()
	f := c.read()
	require.Equal(c.t, proto.FrameData, f.Type)
	snac, body, err := proto.DecodeSNAC(f.Payload)
	require.NoError(c.t, err)
	return f, snac, body
}

// expectClosed asserts the server closed the connection without sending
// anything else.
func (c *client) expectClosed() {
	c.t.Helper()
	require.Empty(c.t, c.pending)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := c.conn.Read(make([]byte, 1))
	assert.Zero(c.t, n)
	assert.ErrorIs(c.t, err, io.EOF)
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		c.t.Fatal("service did not release the connection")
	}
}

// expectSilence asserts nothing is received for d.
func (c *client) expectSilence(d time.Duration) {
	c.t.Helper()
	require.Empty(c.t, c.pending)
	_ = c.conn.SetReadDeadline(time.Now().Add(d))
	n, err := c.conn.Read(make([]byte, 1))
	assert.Zero(c.t, n)
	assert.True(c.t, errors.Is(err, os.ErrDeadlineExceeded), "unexpected read result: %v", err)
}

func tlvsOf(t *testing.T, body []byte) proto.TLVBlock {
	t.Helper()
	tlvs, err := proto.ReadTLVs(body)
	require.NoError(t, err)
	return tlvs
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
