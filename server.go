package goscar

import (
	"net"
	"sync"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/dispatch"
	"github.com/heyvito/goscar/internal/handlers"
	"github.com/heyvito/goscar/internal/iputil"
	"github.com/heyvito/goscar/internal/metrics"
	"github.com/heyvito/goscar/internal/wire"
	"go.uber.org/zap"
)

// Service names, also used as listener and metric labels.
const (
	ServiceAuth = "auth"
	ServiceBOS  = "bos"
)

// Server runs the authentication and BOS services, along with the optional
// status server.
type Server struct {
	opts      *Options
	log       *zap.Logger
	metrics   *metrics.Metrics
	registry  *core.Registry
	auth      *wire.Listener
	bos       *wire.Listener
	advertise string
	status    *statusServer

	shutdownOnce sync.Once
}

// NewServer binds both services according to opts. Call Start to begin
// accepting clients.
func NewServer(opts *Options) (*Server, error) {
	var err error
	if err = opts.normalize(); err != nil {
		return nil, err
	}

	logger := opts.LogHandler.With(zap.String("facility", "server"))

	sealer, err := core.NewSealer(opts.CookieKey)
	if err != nil {
		return nil, err
	}
	cookies := core.NewCookies(sealer, opts.CookieTTL)

	s := &Server{
		opts:     opts,
		log:      logger,
		metrics:  metrics.New(),
		registry: &core.Registry{},
	}
	sessOpts := core.SessionOptions{StrictInbound: opts.StrictInboundSequence}

	bos := handlers.NewBOS(handlers.BOSOptions{
		Cookies:       cookies,
		RequireCookie: opts.RequireCookie,
	})
	bosRouter := s.newRouter(ServiceBOS)
	bos.Register(bosRouter)
	s.bos, err = s.listen(ServiceBOS, opts.BOSAddress, handlers.NewService(handlers.ServiceOptions{
		Name:     ServiceBOS,
		Router:   bosRouter,
		SignOn:   bos.SignOn,
		Registry: s.registry,
		Session:  sessOpts,
		Frames:   s.metrics,
	}))
	if err != nil {
		return nil, err
	}

	s.advertise = opts.BOSAdvertiseAddress
	if s.advertise == "" {
		if s.advertise, err = iputil.AdvertiseAddress(s.bos.Addr().String()); err != nil {
			s.bos.Shutdown()
			return nil, err
		}
	}

	auth := handlers.NewAuth(handlers.AuthOptions{
		Store:           opts.Store,
		Cookies:         cookies,
		BOSAddress:      s.advertise,
		SendLoginErrors: opts.SendLoginErrors,
		ErrorURL:        opts.LoginErrorURL,
		Observer:        s.metrics,
	})
	authRouter := s.newRouter(ServiceAuth)
	auth.Register(authRouter)
	s.auth, err = s.listen(ServiceAuth, opts.AuthAddress, handlers.NewService(handlers.ServiceOptions{
		Name:     ServiceAuth,
		Router:   authRouter,
		SignOn:   auth.SignOn,
		Registry: s.registry,
		Session:  sessOpts,
		Frames:   s.metrics,
	}))
	if err != nil {
		s.bos.Shutdown()
		return nil, err
	}

	if opts.StatusAddress != "" {
		s.status, err = newStatusServer(opts.LogHandler.With(zap.String("facility", "status")), s, opts.StatusAddress)
		if err != nil {
			s.auth.Shutdown()
			s.bos.Shutdown()
			return nil, err
		}
	}

	logger.Info("Server initialized",
		zap.String("auth", s.auth.Addr().String()),
		zap.String("bos", s.bos.Addr().String()),
		zap.String("bos_advertise", s.advertise))
	return s, nil
}

func (s *Server) newRouter(service string) *dispatch.Router {
	r := dispatch.NewRouter(s.opts.LogHandler.With(zap.String("service", service)),
		dispatch.Observe(s.metrics),
		dispatch.Logging(),
		dispatch.Recover(),
	)
	r.ObserveUnknown(s.metrics)
	return r
}

func (s *Server) listen(name, address string, delegate wire.ListenerDelegate) (*wire.Listener, error) {
	return wire.Listen(s.opts.LogHandler, wire.ListenerOptions{
		Name:           name,
		Address:        address,
		MaxConnections: s.opts.MaxConnections,
		ReadTimeout:    s.opts.ReadTimeout,
		AcceptRate:     s.opts.AcceptRate,
		AcceptBurst:    s.opts.AcceptBurst,
		ReusePort:      s.opts.ReusePort,
		Observer:       s.metrics,
	}, delegate)
}

// Start begins accepting clients on both services.
func (s *Server) Start() {
	s.bos.Start()
	s.auth.Start()
	if s.status != nil {
		s.status.start()
	}
}

// Shutdown stops accepting clients, disconnects every session and waits for
// their routines to return. The configured Store is not closed.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		if s.status != nil {
			s.status.stop()
		}

		var wg sync.WaitGroup
		for _, l := range []*wire.Listener{s.auth, s.bos} {
			wg.Add(1)
			go func(l *wire.Listener) {
				defer wg.Done()
				l.Shutdown()
			}(l)
		}
		wg.Wait()
		s.log.Info("Server stopped")
	})
}

// AuthAddr returns the address the authentication service is bound to.
func (s *Server) AuthAddr() net.Addr { return s.auth.Addr() }

// BOSAddr returns the address the BOS service is bound to.
func (s *Server) BOSAddr() net.Addr { return s.bos.Addr() }

// BOSAdvertiseAddress returns the BOS address handed to clients on login.
func (s *Server) BOSAdvertiseAddress() string { return s.advertise }

// StatusAddr returns the address of the status server, or nil when it is
// disabled.
func (s *Server) StatusAddr() net.Addr {
	if s.status == nil {
		return nil
	}
	return s.status.l.Addr()
}

// ActiveSessions returns how many sessions are currently connected across
// both services.
func (s *Server) ActiveSessions() int { return s.registry.Len() }
