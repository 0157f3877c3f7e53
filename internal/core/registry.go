package core

import (
	"slices"
	"strings"

	"github.com/heyvito/goscar/internal/containers"
)

// Entry is a Snapshot annotated with the service that owns the session.
type Entry struct {
	Service string
	Snapshot
}

// Registry tracks live sessions across services.
type Registry struct {
	sessions containers.SyncMap[*Session, string]
}

// Add tracks sess as owned by service.
func (r *Registry) Add(service string, sess *Session) {
	r.sessions.Store(sess, service)
}

// Remove stops tracking sess, reporting whether it was tracked.
func (r *Registry) Remove(sess *Session) bool {
	_, ok := r.sessions.LoadAndDelete(sess)
	return ok
}

// Len returns the amount of tracked sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Entries returns a snapshot of every tracked session, ordered by service
// and connection time.
func (r *Registry) Entries() []Entry {
	var out []Entry
	r.sessions.Range(func(s *Session, service string) bool {
		out = append(out, Entry{Service: service, Snapshot: s.Snapshot()})
		return true
	})
	slices.SortFunc(out, func(a, b Entry) int {
		if c := strings.Compare(a.Service, b.Service); c != 0 {
			return c
		}
		return a.Since.Compare(b.Since)
	})
	return out
}
