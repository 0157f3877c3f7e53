package handlers

import (
	"context"
	"net/netip"
	"time"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/dispatch"
	"github.com/heyvito/goscar/internal/logutil"
	"github.com/heyvito/goscar/internal/proto"
	"go.uber.org/zap"
)

type familyVersion struct {
	family  proto.Family
	version uint16
}

// hostVersions lists the families announced by HOST_ONLINE and the
// versions answered to CLIENT_VERSIONS, in announcement order.
var hostVersions = []familyVersion{
	{proto.FamilyOService, 3},
	{proto.FamilyFeedbag, 3},
	{proto.FamilyLocate, 1},
	{proto.FamilyBuddy, 1},
	{proto.FamilyICBM, 1},
	{proto.FamilyInvite, 1},
	{proto.FamilyUserLookup, 1},
	{proto.FamilyChat, 1},
	{proto.FamilyBART, 1},
}

// Rate class constants. They describe a single permissive class and are
// never enforced.
const (
	rateClassID         uint16 = 1
	rateWindowSize      uint32 = 0xFFFF
	rateClearLevel      uint32 = 10
	rateAlertLevel      uint32 = 100
	rateLimitLevel      uint32 = 50
	rateDisconnectLevel uint32 = 200
	rateCurrentLevel    uint32 = 0
	rateMaxLevel        uint32 = 100
	rateLastTime        uint32 = 100
)

// userClass is the class advertised for every user.
const userClass uint32 = 0x100

// BOSOptions configures the BOS handlers.
type BOSOptions struct {
	Cookies *core.Cookies

	// RequireCookie closes connections that sign on without a login cookie.
	RequireCookie bool
}

// BOS implements the session service handlers.
type BOS struct {
	opts   BOSOptions
	router *dispatch.Router
	nowFn  func() time.Time
}

// NewBOS returns BOS handlers using opts.
func NewBOS(opts BOSOptions) *BOS {
	return &BOS{opts: opts, nowFn: time.Now}
}

// Register routes every message served by BOS to b. The router is retained
// so rate parameters can describe the registered routes.
func (b *BOS) Register(r *dispatch.Router) {
	b.router = r

	r.Register(proto.FamilyOService, proto.OServiceClientVersions, b.ClientVersions)
	r.Register(proto.FamilyOService, proto.OServiceRateParamsQuery, b.RateParamsQuery)
	r.Register(proto.FamilyOService, proto.OServiceUserInfoQuery, b.UserInfoQuery)
	r.Register(proto.FamilyOService, proto.OServiceClientOnline, b.ClientOnline)
	r.Register(proto.FamilyOService, proto.OServiceIdleNotification, logOnly)
	r.Register(proto.FamilyOService, proto.OServiceSetUserInfoFields, logOnly)
	r.Register(proto.FamilyOService, proto.OServiceRateParamsSubAdd, logOnly)
	r.Register(proto.FamilyOService, proto.OServiceNoop, logOnly)

	r.Register(proto.FamilyFeedbag, proto.FeedbagRightsQuery, FeedbagRights)
	r.Register(proto.FamilyLocate, proto.LocateRightsQuery, LocateRights)
	r.Register(proto.FamilyBuddy, proto.BuddyRightsQuery, BuddyRights)
	r.Register(proto.FamilyICBM, proto.ICBMParameterQuery, ICBMParameters)
	r.Register(proto.FamilyICBM, proto.ICBMAddParameters, logOnly)
}

// SignOn handles the client SIGNON frame: a protocol version optionally
// followed by a login cookie TLV. A valid cookie attaches its screen name to
// the session. HOST_ONLINE is sent in return.
func (b *BOS) SignOn(_ context.Context, sess *core.Session, payload []byte) error {
	r := proto.NewReader(payload)
	version, err := r.U32()
	if err != nil {
		return err
	}
	tlvs, err := proto.ReadTLVs(r.Rest())
	if err != nil {
		return err
	}

	if cookie, ok := tlvs.Get(TagCookie); ok {
		screenName, err := b.opts.Cookies.Open(cookie.Value)
		if err != nil {
			sess.Log().Info("Rejecting login cookie", zap.Error(err))
			return core.AuthError{Kind: core.CookieInvalid}
		}
		sess.SetIdentity(screenName)
		sess.SetState(core.StateAuthenticated)
	} else if b.opts.RequireCookie {
		return core.AuthError{Kind: core.CookieInvalid}
	}

	families := make([]proto.Family, 0, len(hostVersions))
	w := proto.NewWriter()
	for _, v := range hostVersions {
		families = append(families, v.family)
		w.U16(uint16(v.family))
	}
	sess.Log().Info("Client signed on",
		zap.Uint32("version", version),
		zap.String("screen_name", sess.Identity()),
		logutil.StringerArr("families", families))

	return sess.SendMessage(proto.Message{
		SNAC: proto.SNAC{Family: proto.FamilyOService, Subtype: proto.OServiceHostOnline},
		Body: w.Bytes(),
	})
}

// ClientVersions answers with the version of every supported family.
func (b *BOS) ClientVersions(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	w := proto.NewWriter()
	for _, v := range hostVersions {
		w.U16(uint16(v.family)).U16(v.version)
	}
	return sess.SendMessage(proto.Reply(snac, proto.OServiceHostVersions, w.Bytes()))
}

// RateParamsQuery answers with a single rate class covering every route
// this service handles.
func (b *BOS) RateParamsQuery(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	var routes []dispatch.Route
	if b.router != nil {
		routes = b.router.Routes()
	}

	w := proto.NewWriter().
		U16(1).
		U16(rateClassID).
		U32(rateWindowSize).
		U32(rateClearLevel).
		U32(rateAlertLevel).
		U32(rateLimitLevel).
		U32(rateDisconnectLevel).
		U32(rateCurrentLevel).
		U32(rateMaxLevel).
		U32(rateLastTime).
		U8(0).
		U16(rateClassID).
		U16(uint16(len(routes)))
	for _, r := range routes {
		w.U16(uint16(r.Family)).U16(r.Subtype)
	}
	return sess.SendMessage(proto.Reply(snac, proto.OServiceRateParamsReply, w.Bytes()))
}

// UserInfoQuery answers with the session's own user info block.
func (b *BOS) UserInfoQuery(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	snap := sess.Snapshot()
	now := b.nowFn()

	tlvs := []proto.TLV{
		proto.TLVU32(TagUserClass, userClass),
		proto.TLVU32(TagUserStatus, 0),
		proto.TLVU32(TagUserExternalIP, externalIPv4(snap.Remote)),
		proto.TLVU32(TagUserOnlineTime, uint32(now.Sub(snap.Since)/time.Second)),
		proto.TLVU32(TagUserSignOnTime, uint32(snap.Since.Unix())),
		proto.TLVU32(TagUserUnknown1E, 0),
		proto.TLVU32(TagUserMemberSince, 0),
	}

	w := proto.NewWriter().
		LStr8(snap.Identity).
		U16(0).
		U16(uint16(len(tlvs))).
		TLVs(tlvs...)
	return sess.SendMessage(proto.Reply(snac, proto.OServiceUserInfoUpdate, w.Bytes()))
}

// ClientOnline marks the session as online. Nothing is sent in return.
func (b *BOS) ClientOnline(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	sess.SetState(core.StateOnline)
	sess.Log().Info("Client online", zap.String("screen_name", sess.Identity()))
	return nil
}

func logOnly(_ context.Context, sess *core.Session, snac proto.SNAC, body []byte) error {
	sess.Log().Info("Ignoring SNAC", zap.Stringer("snac", snac), zap.Int("body_len", len(body)))
	return nil
}

// externalIPv4 returns the IPv4 address in addr as an integer, or zero.
func externalIPv4(addr string) uint32 {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return 0
	}
	ip := ap.Addr().Unmap()
	if !ip.Is4() {
		return 0
	}
	b := ip.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
