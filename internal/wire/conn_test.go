package wire

import (
	"context"
	"github.com/heyvito/goscar/internal/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames []*proto.Frame
	closed chan struct{}
	onData func(frame *proto.Frame) error
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{closed: make(chan struct{})}
}

func (f *frameRecorder) HandleFrame(_ context.Context, frame *proto.Frame) error {
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
	if f.onData != nil {
		return f.onData(frame)
	}
	return nil
}

func (f *frameRecorder) HandleClose() { close(f.closed) }

func (f *frameRecorder) Frames() []*proto.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*proto.Frame{}, f.frames...)
}

func waitClosed(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not closed")
	}
}

func encodeFrame(t proto.FrameType, seq uint16, payload []byte) []byte {
	f := proto.Frame{FLAP: proto.FLAP{Type: t, Sequence: seq}, Payload: payload}
	buf := make([]byte, f.RequiredSize())
	f.Encode(buf)
	return buf
}

func TestConn_SplitFrames(t *testing.T) {
	server, client := net.Pipe()
	rec := newFrameRecorder()
	conn := NewConn(zap.NewNop(), server, 0)
	go conn.Serve(context.Background(), rec)

	data := append(encodeFrame(proto.FrameSignOn, 0, []byte{0, 0, 0, 1}), encodeFrame(proto.FrameKeepAlive, 1, nil)...)
	for i := range data {
		_, err := client.Write(data[i : i+1])
		require.NoError(t, err)
	}
	require.NoError(t, client.Close())
	waitClosed(t, rec.closed)

	frames := rec.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, proto.FrameSignOn, frames[0].Type)
	assert.Equal(t, []byte{0, 0, 0, 1}, frames[0].Payload)
	assert.Equal(t, proto.FrameKeepAlive, frames[1].Type)
	assert.Equal(t, uint16(1), frames[1].Sequence)
	assert.True(t, conn.Closed())
}

func TestConn_BadMarkerCloses(t *testing.T) {
	server, client := net.Pipe()
	rec := newFrameRecorder()
	conn := NewConn(zap.NewNop(), server, 0)
	go conn.Serve(context.Background(), rec)

	go func() { _, _ = client.Write([]byte{'#', 2, 0, 0, 0, 0}) }()
	waitClosed(t, rec.closed)
	assert.Empty(t, rec.Frames())

	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_DelegateErrorCloses(t *testing.T) {
	server, client := net.Pipe()
	rec := newFrameRecorder()
	rec.onData = func(*proto.Frame) error { return assert.AnError }
	conn := NewConn(zap.NewNop(), server, 0)
	go conn.Serve(context.Background(), rec)

	go func() { _, _ = client.Write(encodeFrame(proto.FrameData, 0, []byte{1})) }()
	waitClosed(t, rec.closed)
	assert.Len(t, rec.Frames(), 1)
}

func TestConn_ReadTimeout(t *testing.T) {
	server, _ := net.Pipe()
	rec := newFrameRecorder()
	conn := NewConn(zap.NewNop(), server, 50*time.Millisecond)
	go conn.Serve(context.Background(), rec)
	waitClosed(t, rec.closed)
	assert.True(t, conn.Closed())
}

func TestConn_ContextCancelCloses(t *testing.T) {
	server, _ := net.Pipe()
	rec := newFrameRecorder()
	conn := NewConn(zap.NewNop(), server, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go conn.Serve(ctx, rec)
	cancel()
	waitClosed(t, rec.closed)
}

func TestConn_WriteFrame(t *testing.T) {
	server, client := net.Pipe()
	conn := NewConn(zap.NewNop(), server, 0)

	go func() {
		_ = conn.WriteFrame(proto.Frame{
			FLAP:    proto.FLAP{Type: proto.FrameData, Sequence: 7, Length: 3},
			Payload: []byte{1, 2, 3},
		})
	}()

	buf := make([]byte, 9)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'*', 2, 0, 7, 0, 3, 1, 2, 3}, buf)

	conn.Close()
	conn.Close()
	assert.Error(t, conn.WriteFrame(proto.Frame{FLAP: proto.FLAP{Type: proto.FrameKeepAlive}}))
}
