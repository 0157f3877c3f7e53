package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heyvito/goscar/internal/proto"
	"github.com/heyvito/goscar/internal/store"
	"go.uber.org/zap"
)

// State represents the lifecycle of a Session.
type State uint8

const (
	StateConnecting State = iota
	StateEstablished
	StateAuthenticating
	StateAuthenticated
	StateOnline
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateEstablished:
		return "established"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateOnline:
		return "online"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// SessionOptions tunes a Session.
type SessionOptions struct {
	// StrictInbound closes the session when an inbound frame's sequence
	// number is not its predecessor's plus one.
	StrictInbound bool
}

// Snapshot is a point-in-time copy of a session's public state.
type Snapshot struct {
	Remote       string
	State        State
	Identity     string
	LastInbound  uint16
	LastOutbound uint16
	Since        time.Time
}

// Session holds per-connection state. Frames for a session are read,
// dispatched and answered by a single goroutine; the mutex only serializes
// that goroutine against observers and Close.
type Session struct {
	log  *zap.Logger
	conn FrameConn
	opts SessionOptions

	mu           sync.Mutex
	state        State
	identity     string
	lastInbound  uint16
	seenInbound  bool
	lastOutbound uint16
	sentAny      bool
	challenge    string
	credential   *store.Credential
	since        time.Time

	// Client is populated from the login request.
	Client ClientDescriptor

	closed atomic.Bool
}

// NewSession returns a Session writing to conn.
func NewSession(log *zap.Logger, conn FrameConn, opts SessionOptions) *Session {
	return &Session{
		log:   log,
		conn:  conn,
		opts:  opts,
		state: StateConnecting,
		since: time.Now(),
	}
}

// Log returns the session logger.
func (s *Session) Log() *zap.Logger { return s.log }

// RemoteAddr returns the address of the peer.
func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState moves the session to next. Closed sessions never leave
// StateClosed.
func (s *Session) SetState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = next
}

// Identity returns the authenticated screen name, if any.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SetIdentity attaches an authenticated screen name to the session.
func (s *Session) SetIdentity(screenName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = screenName
}

// Credential returns the credential fetched for this session, if any.
func (s *Session) Credential() *store.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// SetCredential attaches a fetched credential to the session.
func (s *Session) SetCredential(c *store.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = c
}

// Challenge returns the pending challenge, or an empty string.
func (s *Session) Challenge() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// SetChallenge replaces any pending challenge with token.
func (s *Session) SetChallenge(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = token
}

// ClearChallenge drops the pending challenge.
func (s *Session) ClearChallenge() { s.SetChallenge("") }

// RecordInbound records the sequence number of a received frame. Under
// SessionOptions.StrictInbound, a number other than the previous plus one
// yields OutOfOrderErr.
func (s *Session) RecordInbound(seq uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.StrictInbound && s.seenInbound && seq != s.lastInbound+1 {
		return fmt.Errorf("%w: expected %d, got %d", OutOfOrderErr, s.lastInbound+1, seq)
	}
	s.lastInbound = seq
	s.seenInbound = true
	return nil
}

// LastInbound returns the last recorded inbound sequence number.
func (s *Session) LastInbound() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInbound
}

// LastOutbound returns the sequence number of the last frame sent.
func (s *Session) LastOutbound() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutbound
}

// nextSequence returns the number for the next outbound frame. The first
// frame of a session uses 0; each following frame uses its predecessor plus
// one, wrapping at 16 bits. mu must be held.
func (s *Session) nextSequence() uint16 {
	if !s.sentAny {
		s.sentAny = true
		return s.lastOutbound
	}
	s.lastOutbound++
	return s.lastOutbound
}

// SendFrame writes a frame of type t carrying payload. A failed write closes
// the session.
func (s *Session) SendFrame(t proto.FrameType, payload []byte) error {
	if s.closed.Load() {
		return ConnectionClosedErr
	}
	if len(payload) > proto.MaxPayloadSize {
		return fmt.Errorf("payload of %d bytes exceeds frame capacity", len(payload))
	}

	s.mu.Lock()
	seq := s.nextSequence()
	s.mu.Unlock()

	frame := proto.Frame{
		FLAP:    proto.FLAP{Type: t, Sequence: seq, Length: uint16(len(payload))},
		Payload: payload,
	}
	if err := s.conn.WriteFrame(frame); err != nil {
		s.Close()
		return err
	}
	return nil
}

// SendSignOn sends the initial SIGNON frame carrying version 1.
func (s *Session) SendSignOn() error {
	if err := s.SendFrame(proto.FrameSignOn, proto.NewWriter().U32(1).Bytes()); err != nil {
		return err
	}
	s.SetState(StateEstablished)
	return nil
}

// SendMessage sends msg in a DATA frame.
func (s *Session) SendMessage(msg proto.Message) error {
	return s.SendFrame(proto.FrameData, proto.NewWriter().Encoder(msg).Bytes())
}

// SendSignOff sends an empty SIGNOFF frame.
func (s *Session) SendSignOff() error {
	return s.SendFrame(proto.FrameSignOff, nil)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed.Load() }

// Close closes the underlying connection and releases pending challenge
// material. Calling Close more than once has no effect.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.mu.Lock()
	s.state = StateClosed
	s.challenge = ""
	s.credential = nil
	s.mu.Unlock()
	s.conn.Close()
}

// Snapshot returns a copy of the session's public state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Remote:       s.conn.RemoteAddr(),
		State:        s.state,
		Identity:     s.identity,
		LastInbound:  s.lastInbound,
		LastOutbound: s.lastOutbound,
		Since:        s.since,
	}
}
