package wire

import (
	"context"
	"errors"
	"fmt"
	"github.com/heyvito/goscar/internal/containers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const acceptBackoff = 50 * time.Millisecond

// Observer is notified about the connection lifecycle of a Listener.
type Observer interface {
	ConnectionOpened(listener string)
	ConnectionClosed(listener string)
	ConnectionRejected(listener string)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened(string)   {}
func (nopObserver) ConnectionClosed(string)   {}
func (nopObserver) ConnectionRejected(string) {}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	// Name identifies the listener in logs and metrics.
	Name string

	// Address is the host:port to bind to.
	Address string

	// MaxConnections caps the amount of connections served concurrently.
	// Connections above the cap are accepted and closed right away. Zero
	// disables the cap.
	MaxConnections int

	// ReadTimeout closes connections that stay silent for longer. Zero
	// disables it.
	ReadTimeout time.Duration

	// AcceptRate limits how many connections are accepted per second, with
	// AcceptBurst allowing short spikes. Zero means no limit.
	AcceptRate  rate.Limit
	AcceptBurst int

	// ReusePort sets SO_REUSEPORT on the listening socket.
	ReusePort bool

	Observer Observer
}

// ListenerDelegate prepares accepted connections.
type ListenerDelegate interface {
	// HandleConnect is called from the routine that will serve conn, before
	// any frame is read. Returning an error closes conn.
	HandleConnect(conn *Conn) (ConnDelegate, error)
}

// Listener accepts FLAP connections and serves each from its own routine.
type Listener struct {
	log      *zap.Logger
	opts     ListenerOptions
	listener net.Listener
	delegate ListenerDelegate
	limiter  *rate.Limiter

	running   atomic.Bool
	active    atomic.Int64
	conns     containers.SyncMap[*Conn, struct{}]
	clients   sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	loopDone  chan struct{}
}

// Listen binds a new Listener. Call Start to begin accepting connections.
func Listen(log *zap.Logger, opts ListenerOptions, delegate ListenerDelegate) (*Listener, error) {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.AcceptRate <= 0 {
		opts.AcceptRate = rate.Inf
	}
	if opts.AcceptBurst < 1 {
		opts.AcceptBurst = 1
	}

	log = log.With(zap.String("facility", "listener"), zap.String("listener", opts.Name))
	lc := net.ListenConfig{Control: socketControl(log, opts.ReusePort)}
	l, err := lc.Listen(context.Background(), "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed initializing %s listener on %s: %w", opts.Name, opts.Address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		log:      log,
		opts:     opts,
		listener: l,
		delegate: delegate,
		limiter:  rate.NewLimiter(opts.AcceptRate, opts.AcceptBurst),
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.listener.Addr() }

// Active returns the amount of connections currently being served.
func (l *Listener) Active() int { return int(l.active.Load()) }

// Start starts accepting connections in a new routine.
func (l *Listener) Start() {
	if l.running.Swap(true) {
		return
	}
	go l.loop()
}

// Shutdown stops accepting connections, closes every connection being
// served and blocks until their routines return.
func (l *Listener) Shutdown() {
	wasRunning := l.running.Swap(false)
	l.closeOnce.Do(func() {
		l.cancel()
		if err := l.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.log.Error("Failed closing listener", zap.Error(err))
		}
	})
	if !wasRunning {
		return
	}
	<-l.loopDone

	for _, c := range l.conns.Keys() {
		c.Close()
	}
	l.clients.Wait()
	l.log.Info("Listener stopped")
}

func (l *Listener) loop() {
	defer close(l.loopDone)
	l.log.Info("Now accepting connections", zap.String("address", l.Addr().String()))

	for l.running.Load() {
		if err := l.limiter.Wait(l.ctx); err != nil {
			if l.ctx.Err() == nil {
				l.log.Error("Accept throttle failed", zap.Error(err))
			}
			return
		}

		conn, err := l.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				continue
			}
			l.log.Error("Failed accepting client", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}

		if n := l.active.Add(1); l.opts.MaxConnections > 0 && n > int64(l.opts.MaxConnections) {
			l.active.Add(-1)
			l.log.Warn("Rejecting connection", zap.Error(CapacityError{
				Listener: l.opts.Name,
				Limit:    l.opts.MaxConnections,
				Remote:   conn.RemoteAddr().String(),
			}))
			l.opts.Observer.ConnectionRejected(l.opts.Name)
			_ = conn.Close()
			continue
		}

		l.serve(conn)
	}
}

func (l *Listener) serve(nc net.Conn) {
	c := NewConn(l.log, nc, l.opts.ReadTimeout)
	l.conns.Store(c, struct{}{})
	l.clients.Add(1)
	l.opts.Observer.ConnectionOpened(l.opts.Name)

	go func() {
		defer l.clients.Done()
		defer l.active.Add(-1)
		defer l.conns.LoadAndDelete(c)
		defer l.opts.Observer.ConnectionClosed(l.opts.Name)

		delegate, err := l.delegate.HandleConnect(c)
		if err != nil {
			c.Log().Error("Failed initializing connection", zap.Error(err))
			c.Close()
			return
		}
		c.Serve(l.ctx, delegate)
	}()
}
