package handlers

import (
	"context"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/dispatch"
	"github.com/heyvito/goscar/internal/proto"
	"github.com/heyvito/goscar/internal/wire"
	"go.uber.org/zap"
)

// SignOnFunc handles the payload of a SIGNON frame sent by a client.
type SignOnFunc func(ctx context.Context, sess *core.Session, payload []byte) error

// FrameObserver is notified about every frame received by a service.
type FrameObserver interface {
	FrameReceived(service, frameType string)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Name identifies the service in logs, metrics and the registry.
	Name     string
	Router   *dispatch.Router
	SignOn   SignOnFunc
	Registry *core.Registry
	Session  core.SessionOptions
	Frames   FrameObserver
}

// Service binds a handler set to wire connections. For every connection it
// creates a Session, greets the client with SIGNON, and feeds received
// frames through the router.
type Service struct {
	opts ServiceOptions
}

// NewService returns a Service using opts.
func NewService(opts ServiceOptions) *Service {
	if opts.Registry == nil {
		opts.Registry = &core.Registry{}
	}
	return &Service{opts: opts}
}

// Name returns the service name.
func (s *Service) Name() string { return s.opts.Name }

// HandleConnect implements wire.ListenerDelegate.
func (s *Service) HandleConnect(conn *wire.Conn) (wire.ConnDelegate, error) {
	sess := core.NewSession(conn.Log().With(zap.String("service", s.opts.Name)), conn, s.opts.Session)
	if err := sess.SendSignOn(); err != nil {
		return nil, err
	}
	s.opts.Registry.Add(s.opts.Name, sess)
	sess.Log().Debug("Session established")
	return &sessionHandler{service: s, sess: sess}, nil
}

type sessionHandler struct {
	service *Service
	sess    *core.Session
}

func (h *sessionHandler) HandleFrame(ctx context.Context, frame *proto.Frame) error {
	s, sess := h.service, h.sess
	if s.opts.Frames != nil {
		s.opts.Frames.FrameReceived(s.opts.Name, frame.Type.String())
	}
	if err := sess.RecordInbound(frame.Sequence); err != nil {
		sess.Log().Warn("Closing session", zap.Error(err))
		return err
	}

	switch frame.Type {
	case proto.FrameSignOn:
		if s.opts.SignOn == nil {
			return nil
		}
		if err := s.opts.SignOn(ctx, sess, frame.Payload); err != nil {
			sess.Log().Warn("Sign-on failed, closing session", zap.Error(err))
			return err
		}

	case proto.FrameData:
		snac, body, err := proto.DecodeSNAC(frame.Payload)
		if err != nil {
			sess.Log().Warn("Failed decoding SNAC, closing session", zap.Error(err))
			return err
		}
		if err = s.opts.Router.Dispatch(ctx, sess, snac, body); err != nil {
			sess.Log().Info("Closing session", zap.Stringer("snac", snac), zap.Error(err))
			return err
		}

	case proto.FrameSignOff:
		sess.Log().Info("Client signed off")
		sess.Close()

	case proto.FrameKeepAlive:
		sess.Log().Debug("Keep-alive received", zap.Uint16("sequence", frame.Sequence))

	default:
		sess.Log().Info("Ignoring frame", zap.Stringer("type", frame.Type), zap.Int("len", len(frame.Payload)))
	}
	return nil
}

func (h *sessionHandler) HandleClose() {
	h.sess.Close()
	h.service.opts.Registry.Remove(h.sess)
	h.sess.Log().Debug("Session closed")
}
