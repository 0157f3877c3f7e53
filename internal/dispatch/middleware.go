package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/proto"
	"go.uber.org/zap"
)

// PanicErr is returned by handlers wrapped with Recover when they panic.
var PanicErr = fmt.Errorf("handler panicked")

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one provided is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Logging logs every handled SNAC at debug level, and failures at warn.
func Logging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) error {
			start := time.Now()
			err := next(ctx, sess, snac, body)
			fields := []zap.Field{
				zap.Stringer("snac", snac),
				zap.Uint32("request_id", snac.RequestID),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				sess.Log().Warn("SNAC handler failed", append(fields, zap.Error(err))...)
			} else {
				sess.Log().Debug("Handled SNAC", fields...)
			}
			return err
		}
	}
}

// Recover turns a panicking handler into a PanicErr.
func Recover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) (err error) {
			defer func() {
				if r := recover(); r != nil {
					sess.Log().Error("Recovered from handler panic",
						zap.Stringer("snac", snac),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					err = fmt.Errorf("%w: %v", PanicErr, r)
				}
			}()
			return next(ctx, sess, snac, body)
		}
	}
}

// SNACObserver receives the outcome of every handled SNAC.
type SNACObserver interface {
	ObserveSNAC(family, subtype string, took time.Duration, err error)
}

// Observe reports each handled SNAC to o.
func Observe(o SNACObserver) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) error {
			start := time.Now()
			err := next(ctx, sess, snac, body)
			o.ObserveSNAC(snac.Family.String(), proto.SubtypeName(snac.Family, snac.Subtype), time.Since(start), err)
			return err
		}
	}
}
