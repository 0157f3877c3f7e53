package goscar

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/heyvito/goscar/internal/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options represents a set of options to tuning and configuring the current
// server.
type Options struct {
	// AuthAddress is the address the authentication service listens on.
	// Defaults to ":5190".
	AuthAddress string

	// BOSAddress is the address the BOS service listens on. Defaults to
	// ":5191".
	BOSAddress string

	// BOSAdvertiseAddress is the host:port handed to clients after a
	// successful login. When empty, it is derived from the address the BOS
	// listener is bound to, replacing unspecified hosts by the address of the
	// interface holding the default route.
	BOSAdvertiseAddress string

	// MaxConnections limits how many connections each service serves at
	// once. Connections above that limit are closed as soon as they are
	// accepted. A negative value disables the limit. Defaults to 10.
	MaxConnections int

	// ReadTimeout closes connections that stay silent for longer than this
	// duration. Zero disables it.
	ReadTimeout time.Duration

	// AcceptRate and AcceptBurst throttle how fast new connections are
	// accepted by each service. A zero AcceptRate disables throttling.
	AcceptRate  rate.Limit
	AcceptBurst int

	// ReusePort sets SO_REUSEPORT on both listeners.
	ReusePort bool

	// StrictInboundSequence closes sessions whose clients skip or repeat
	// FLAP sequence numbers. When unset, gaps are only logged.
	StrictInboundSequence bool

	// SendLoginErrors makes the authentication service tell clients why a
	// login failed before closing their connection. LoginErrorURL, when set,
	// is sent along with the error.
	SendLoginErrors bool
	LoginErrorURL   string

	// RequireCookie makes BOS close connections that sign on without a
	// login cookie.
	RequireCookie bool

	// CookieKey is the 16-byte key used to seal login cookies. When empty, a
	// random key is generated; cookies issued by other processes will not be
	// accepted in that case.
	CookieKey []byte

	// CookieTTL determines for how long a login cookie is accepted by BOS.
	// Defaults to 5 minutes.
	CookieTTL time.Duration

	// Store holds the credentials checked by the authentication service.
	// Defaults to an empty in-memory store.
	Store store.Store

	// StatusAddress, when set, starts an HTTP server exposing metrics, live
	// sessions and a status page on that address.
	StatusAddress string

	// LogHandler represents the logger that will be used by this library. A
	// nil logger will emit no messages.
	LogHandler *zap.Logger
}

func (o *Options) normalize() error {
	if o.AuthAddress == "" {
		o.AuthAddress = ":5190"
	}

	if o.BOSAddress == "" {
		o.BOSAddress = ":5191"
	}

	if o.MaxConnections == 0 {
		o.MaxConnections = 10
	} else if o.MaxConnections < 0 {
		o.MaxConnections = 0
	}

	if o.ReadTimeout < 0 {
		return fmt.Errorf("ReadTimeout must not be negative")
	}

	if o.AcceptRate == 0 {
		o.AcceptRate = rate.Inf
	}

	if o.CookieTTL == 0 {
		o.CookieTTL = 5 * time.Minute
	}

	if len(o.CookieKey) == 0 {
		o.CookieKey = make([]byte, 16)
		if _, err := rand.Read(o.CookieKey); err != nil {
			return fmt.Errorf("failed generating cookie key: %w", err)
		}
	} else if len(o.CookieKey) != 16 {
		return fmt.Errorf("CookieKey must have 16 bytes")
	}

	if o.Store == nil {
		o.Store = store.NewMemory()
	}

	if o.LogHandler == nil {
		o.LogHandler = zap.NewNop()
	}

	return nil
}
