package dispatch

import (
	"context"
	"slices"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/logutil"
	"github.com/heyvito/goscar/internal/proto"
	"go.uber.org/zap"
)

// unknownPreview bounds how much of an unrecognized body gets logged.
const unknownPreview = 32

// HandlerFunc handles a single SNAC for a session. body holds the bytes
// following the SNAC header. Returning an error closes the session.
type HandlerFunc func(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) error

// UnknownObserver is notified about SNACs no handler is registered for.
type UnknownObserver interface {
	UnknownSNAC(family string)
}

// Route identifies a (family, subtype) pair.
type Route struct {
	Family  proto.Family
	Subtype uint16
}

// Router maps (family, subtype) pairs to handlers. Routes are registered
// before the router is shared; Dispatch is safe for concurrent use after
// that.
type Router struct {
	log        *zap.Logger
	routes     map[Route]HandlerFunc
	middleware Middleware
	unknown    UnknownObserver
}

// NewRouter returns an empty Router wrapping every handler with mw, in the
// order provided.
func NewRouter(log *zap.Logger, mw ...Middleware) *Router {
	return &Router{
		log:        log.With(zap.String("facility", "router")),
		routes:     map[Route]HandlerFunc{},
		middleware: Chain(mw...),
	}
}

// ObserveUnknown sets the observer notified for unrouted SNACs.
func (r *Router) ObserveUnknown(o UnknownObserver) { r.unknown = o }

// Register routes (family, subtype) to fn, replacing any previous handler.
func (r *Router) Register(family proto.Family, subtype uint16, fn HandlerFunc) {
	r.routes[Route{family, subtype}] = r.middleware(fn)
	r.log.Debug("Registered handler", zap.Stringer("snac", proto.SNAC{Family: family, Subtype: subtype}))
}

// Handles reports whether a handler is registered for (family, subtype).
func (r *Router) Handles(family proto.Family, subtype uint16) bool {
	_, ok := r.routes[Route{family, subtype}]
	return ok
}

// Families returns every family with at least one registered handler, in
// ascending order.
func (r *Router) Families() []proto.Family {
	var out []proto.Family
	for k := range r.routes {
		if !slices.Contains(out, k.Family) {
			out = append(out, k.Family)
		}
	}
	slices.Sort(out)
	return out
}

// Routes returns every registered pair, ordered by family then subtype.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.routes))
	for k := range r.routes {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Route) int {
		if a.Family != b.Family {
			return int(a.Family) - int(b.Family)
		}
		return int(a.Subtype) - int(b.Subtype)
	})
	return out
}

// Dispatch invokes the handler registered for snac. SNACs without a handler
// are logged and dropped; they never fail the session.
func (r *Router) Dispatch(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) error {
	fn, ok := r.routes[Route{snac.Family, snac.Subtype}]
	if !ok {
		r.handleUnknown(sess, snac, body)
		return nil
	}
	return fn(ctx, sess, snac, body)
}

func (r *Router) handleUnknown(sess *core.Session, snac proto.SNAC, body []byte) {
	sess.Log().Warn("No handler for SNAC",
		zap.Stringer("snac", snac),
		zap.Uint16("family", uint16(snac.Family)),
		zap.Uint16("subtype", snac.Subtype),
		zap.Uint32("request_id", snac.RequestID),
		zap.Int("body_len", len(body)),
		logutil.HexPreview("body", body, unknownPreview))
	if r.unknown != nil {
		r.unknown.UnknownSNAC(snac.Family.String())
	}
}
