package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/dispatch"
	"github.com/heyvito/goscar/internal/proto"
	"github.com/heyvito/goscar/internal/store"
	"go.uber.org/zap"
)

// MissingScreenNameErr is returned when a BUCP request does not identify
// the account it refers to.
var MissingScreenNameErr = fmt.Errorf("request carries no screen name")

// LoginObserver is notified about the outcome of every login attempt.
type LoginObserver interface {
	LoginAttempt(result string)
}

// AuthOptions configures the BUCP handlers.
type AuthOptions struct {
	Store   store.Store
	Cookies *core.Cookies

	// BOSAddress is the host:port clients are sent to after logging in.
	BOSAddress string

	// SendLoginErrors replies with a login error before closing a
	// connection that failed to authenticate. When unset, the connection is
	// closed silently.
	SendLoginErrors bool
	ErrorURL        string

	Observer LoginObserver
}

// Auth implements the BUCP challenge and login exchange.
type Auth struct {
	opts AuthOptions
}

// NewAuth returns Auth handlers using opts.
func NewAuth(opts AuthOptions) *Auth {
	return &Auth{opts: opts}
}

// Register routes BUCP messages to a.
func (a *Auth) Register(r *dispatch.Router) {
	r.Register(proto.FamilyBUCP, proto.BUCPChallengeRequest, a.ChallengeRequest)
	r.Register(proto.FamilyBUCP, proto.BUCPLoginRequest, a.LoginRequest)
}

// SignOn handles the SIGNON frame a client sends right after connecting to
// the authentication service. Nothing is sent in return.
func (a *Auth) SignOn(_ context.Context, sess *core.Session, payload []byte) error {
	version, err := proto.NewReader(payload).U32()
	if err != nil {
		return err
	}
	sess.Log().Debug("Client signed on", zap.Uint32("version", version))
	return nil
}

// ChallengeRequest looks up the account named by the request, stores its
// credential on the session and replies with a new challenge. Any pending
// challenge is replaced.
func (a *Auth) ChallengeRequest(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) error {
	tlvs, err := proto.ReadTLVs(body)
	if err != nil {
		return err
	}
	sn, ok := tlvs.Get(TagScreenName)
	if !ok || len(sn.Value) == 0 {
		return MissingScreenNameErr
	}
	screenName := sn.Text()
	sess.SetState(core.StateAuthenticating)

	cred, err := a.lookup(ctx, screenName)
	if err != nil {
		return a.reject(sess, snac, screenName, err)
	}

	challenge, err := core.NewChallenge()
	if err != nil {
		return err
	}
	sess.SetCredential(cred)
	sess.SetChallenge(challenge)
	sess.Log().Debug("Issued challenge", zap.String("screen_name", screenName))

	return sess.SendMessage(proto.Reply(snac, proto.BUCPChallengeResponse,
		proto.NewWriter().LStr16(challenge).Bytes()))
}

// LoginRequest verifies the digest presented by the client against the
// pending challenge. On success it replies with the BOS address and a login
// cookie, signs the client off and closes the connection.
func (a *Auth) LoginRequest(ctx context.Context, sess *core.Session, snac proto.SNAC, body []byte) error {
	tlvs, err := proto.ReadTLVs(body)
	if err != nil {
		return err
	}
	client, err := parseClientDescriptor(tlvs)
	if err != nil {
		return err
	}
	if client.ScreenName == "" {
		return MissingScreenNameErr
	}
	sess.Client = client
	sess.SetState(core.StateAuthenticating)

	// The credential is fetched again here; the copy stored by
	// ChallengeRequest only tells which account the challenge was issued for.
	cred, err := a.lookup(ctx, client.ScreenName)
	if err != nil {
		return a.reject(sess, snac, client.ScreenName, err)
	}

	challenge := sess.Challenge()
	if challenge == "" {
		return a.reject(sess, snac, client.ScreenName, core.AuthError{Kind: core.ChallengeMissing, ScreenName: client.ScreenName})
	}
	if issued := sess.Credential(); issued == nil || store.NormalizeIdentity(issued.UIN) != store.NormalizeIdentity(cred.UIN) {
		return a.reject(sess, snac, client.ScreenName, core.AuthError{Kind: core.ChallengeMismatch, ScreenName: client.ScreenName})
	}

	digest, _ := tlvs.Get(TagPasswordDigest)
	if !core.VerifyResponse(challenge, cred.PasswordDigest, digest.Value) {
		return a.reject(sess, snac, client.ScreenName, core.AuthError{Kind: core.ChallengeMismatch, ScreenName: client.ScreenName})
	}

	cookie, err := a.opts.Cookies.Issue(cred.UIN)
	if err != nil {
		return core.ResourceError{Kind: core.AllocationFailed, Err: err}
	}

	sess.ClearChallenge()
	sess.SetIdentity(cred.UIN)
	sess.SetState(core.StateAuthenticated)
	a.observe("success")
	sess.Log().Info("Login succeeded",
		zap.String("screen_name", cred.UIN),
		zap.String("client_id", client.ClientID),
		zap.Uint16("major", client.Major),
		zap.Uint16("minor", client.Minor),
		zap.Uint16("build", client.Build))

	reply := proto.NewWriter().TLVs(
		proto.TLVString(TagScreenName, cred.UIN),
		proto.TLVString(TagBOSAddress, a.opts.BOSAddress),
		proto.TLVBytes(TagCookie, cookie),
		proto.TLVString(TagEmail, cred.Email),
	)
	if err = sess.SendMessage(proto.Reply(snac, proto.BUCPLoginResponse, reply.Bytes())); err != nil {
		return err
	}
	if err = sess.SendSignOff(); err != nil {
		return err
	}
	sess.Close()
	return nil
}

// lookup resolves screenName, by email when it contains an @.
func (a *Auth) lookup(ctx context.Context, screenName string) (*store.Credential, error) {
	var cred *store.Credential
	var err error
	if strings.Contains(screenName, "@") {
		cred, err = a.opts.Store.FindByEmail(ctx, screenName)
	} else {
		cred, err = a.opts.Store.FindByIdentity(ctx, screenName)
	}

	switch {
	case errors.Is(err, store.NotFoundErr):
		return nil, core.AuthError{Kind: core.UserNotFound, ScreenName: screenName}
	case err != nil:
		return nil, core.ResourceError{Kind: core.StoreUnavailable, Err: err}
	}
	return cred, nil
}

// reject records a failed attempt and, when enabled, tells the client why
// before the connection is closed. It always returns cause.
func (a *Auth) reject(sess *core.Session, req proto.SNAC, screenName string, cause error) error {
	code := LoginErrServiceUnavailable
	var authErr core.AuthError
	if errors.As(cause, &authErr) {
		switch authErr.Kind {
		case core.UserNotFound:
			a.observe("not_found")
			code = LoginErrInvalidNickOrPassword
		default:
			a.observe("mismatch")
			code = LoginErrInvalidPassword
		}
	} else {
		a.observe("error")
	}

	sess.ClearChallenge()
	if !a.opts.SendLoginErrors {
		return cause
	}

	reply := proto.NewWriter().TLVs(
		proto.TLVString(TagScreenName, screenName),
		proto.TLVU16(TagErrorCode, code),
	)
	if a.opts.ErrorURL != "" {
		reply.TLVs(proto.TLVString(TagErrorURL, a.opts.ErrorURL))
	}
	if err := sess.SendMessage(proto.Reply(req, proto.BUCPLoginResponse, reply.Bytes())); err != nil {
		sess.Log().Debug("Failed sending login error", zap.Error(err))
	}
	return cause
}

func (a *Auth) observe(result string) {
	if a.opts.Observer != nil {
		a.opts.Observer.LoginAttempt(result)
	}
}
