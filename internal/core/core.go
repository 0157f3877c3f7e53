package core

import (
	"fmt"

	"github.com/heyvito/goscar/internal/proto"
)

// ConnectionClosedErr is returned by session operations once the session
// has been closed.
var ConnectionClosedErr = fmt.Errorf("connection closed")

// OutOfOrderErr is returned by Session.RecordInbound under strict
// sequencing when a frame does not follow its predecessor.
var OutOfOrderErr = fmt.Errorf("inbound frame out of sequence")

// FrameConn is the connection a Session writes to. Implementations close
// themselves when a write fails.
type FrameConn interface {
	WriteFrame(frame proto.Frame) error
	Close()
	RemoteAddr() string
}

// AuthErrorKind enumerates authentication failures.
type AuthErrorKind uint8

const (
	UserNotFound AuthErrorKind = iota + 1
	ChallengeMissing
	ChallengeMismatch
	CookieInvalid
)

func (k AuthErrorKind) String() string {
	switch k {
	case UserNotFound:
		return "UserNotFound"
	case ChallengeMissing:
		return "ChallengeMissing"
	case ChallengeMismatch:
		return "ChallengeMismatch"
	case CookieInvalid:
		return "CookieInvalid"
	}
	return fmt.Sprintf("AuthErrorKind(%d)", uint8(k))
}

// AuthError indicates that a client could not be authenticated. Handlers
// close the connection when they produce one.
type AuthError struct {
	Kind       AuthErrorKind
	ScreenName string
}

func (a AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %q: %s", a.ScreenName, a.Kind)
}

// ResourceErrorKind enumerates failures of resources a session depends on.
type ResourceErrorKind uint8

const (
	AllocationFailed ResourceErrorKind = iota + 1
	StoreUnavailable
)

func (k ResourceErrorKind) String() string {
	switch k {
	case AllocationFailed:
		return "AllocationFailed"
	case StoreUnavailable:
		return "StoreUnavailable"
	}
	return fmt.Sprintf("ResourceErrorKind(%d)", uint8(k))
}

// ResourceError wraps a failure of a collaborator. It only affects the
// session that observed it.
type ResourceError struct {
	Kind ResourceErrorKind
	Err  error
}

func (r ResourceError) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Err)
}

func (r ResourceError) Unwrap() error { return r.Err }
