package handlers

import (
	"context"

	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/proto"
)

// Feedbag limits. The item limits are indexed by feedbag class.
var feedbagMaxItemsByClass = []uint16{
	500, // buddy
	100, // group
	200, // permit
	200, // deny
	1,   // visibility
	1,   // presence
	150, // watch list
	12,  // ignore
	12,  // date
	0,
	50,
	50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

const (
	feedbagMaxAttrSize        uint16 = 254
	feedbagMaxItemAttrs       uint16 = 254
	feedbagMaxClientItems     uint16 = 1000
	feedbagMaxItemNameLen     uint16 = 97
	feedbagMaxRecentBuddies   uint16 = 7
	feedbagInteractionBuddies uint16 = 10
	feedbagHalfLife           uint32 = 432000
	feedbagMaxScore           uint32 = 14
	feedbagMaxBuddiesInGroup  uint16 = 100
	feedbagMaxBotBuddies      uint16 = 1
	feedbagMaxSmartGroups     uint16 = 20
)

// Feedbag rights TLV tags.
const (
	tagFeedbagMaxAttrSize       uint16 = 0x02
	tagFeedbagMaxItemAttrs      uint16 = 0x03
	tagFeedbagMaxItemsByClass   uint16 = 0x04
	tagFeedbagMaxClientItems    uint16 = 0x05
	tagFeedbagMaxItemNameLen    uint16 = 0x06
	tagFeedbagMaxRecentBuddies  uint16 = 0x07
	tagFeedbagInteractionBuddy  uint16 = 0x08
	tagFeedbagHalfLife          uint16 = 0x09
	tagFeedbagMaxScore          uint16 = 0x0A
	tagFeedbagMaxBuddiesInGroup uint16 = 0x0C
	tagFeedbagMaxBotBuddies     uint16 = 0x0D
	tagFeedbagMaxSmartGroups    uint16 = 0x0E
)

// LOCATE limits, by TLV tag.
const (
	tagLocateMaxSigLen       uint16 = 0x01
	tagLocateMaxCapabilities uint16 = 0x02
	tagLocateMaxFindByEmail  uint16 = 0x03
	tagLocateMaxCertsLen     uint16 = 0x04

	locateMaxSigLen       uint16 = 1024
	locateMaxCapabilities uint16 = 32
	locateMaxFindByEmail  uint16 = 10
	locateMaxCertsLen     uint16 = 4096
)

// BUDDY limits, by TLV tag.
const (
	tagBuddyMaxBuddies     uint16 = 0x01
	tagBuddyMaxWatchers    uint16 = 0x02
	tagBuddyMaxTempBuddies uint16 = 0x04

	buddyMaxBuddies     uint16 = 500
	buddyMaxWatchers    uint16 = 750
	buddyMaxTempBuddies uint16 = 160
)

// ICBM parameters.
const (
	icbmChannel        uint16 = 0
	icbmFlags          uint32 = 0x03
	icbmMaxMessageLen  uint16 = 512
	icbmMaxSourceEvil  uint16 = 999
	icbmMaxDestEvil    uint16 = 999
	icbmMinMsgInterval uint32 = 0
)

// FeedbagRights answers FEEDBAG RIGHTS_QUERY with static limits.
func FeedbagRights(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	byClass := proto.NewWriter()
	for _, v := range feedbagMaxItemsByClass {
		byClass.U16(v)
	}

	body := proto.NewWriter().TLVs(
		proto.TLVU16(tagFeedbagMaxAttrSize, feedbagMaxAttrSize),
		proto.TLVU16(tagFeedbagMaxItemAttrs, feedbagMaxItemAttrs),
		proto.TLVBytes(tagFeedbagMaxItemsByClass, byClass.Bytes()),
		proto.TLVU16(tagFeedbagMaxClientItems, feedbagMaxClientItems),
		proto.TLVU16(tagFeedbagMaxItemNameLen, feedbagMaxItemNameLen),
		proto.TLVU16(tagFeedbagMaxRecentBuddies, feedbagMaxRecentBuddies),
		proto.TLVU16(tagFeedbagInteractionBuddy, feedbagInteractionBuddies),
		proto.TLVU32(tagFeedbagHalfLife, feedbagHalfLife),
		proto.TLVU32(tagFeedbagMaxScore, feedbagMaxScore),
		proto.TLVU16(tagFeedbagMaxBuddiesInGroup, feedbagMaxBuddiesInGroup),
		proto.TLVU16(tagFeedbagMaxBotBuddies, feedbagMaxBotBuddies),
		proto.TLVU16(tagFeedbagMaxSmartGroups, feedbagMaxSmartGroups),
	)
	return sess.SendMessage(proto.Reply(snac, proto.FeedbagRightsReply, body.Bytes()))
}

// LocateRights answers LOCATE RIGHTS_QUERY with static limits.
func LocateRights(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	body := proto.NewWriter().TLVs(
		proto.TLVU16(tagLocateMaxSigLen, locateMaxSigLen),
		proto.TLVU16(tagLocateMaxCapabilities, locateMaxCapabilities),
		proto.TLVU16(tagLocateMaxFindByEmail, locateMaxFindByEmail),
		proto.TLVU16(tagLocateMaxCertsLen, locateMaxCertsLen),
	)
	return sess.SendMessage(proto.Reply(snac, proto.LocateRightsReply, body.Bytes()))
}

// BuddyRights answers BUDDY RIGHTS_QUERY with static limits.
func BuddyRights(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	body := proto.NewWriter().TLVs(
		proto.TLVU16(tagBuddyMaxBuddies, buddyMaxBuddies),
		proto.TLVU16(tagBuddyMaxWatchers, buddyMaxWatchers),
		proto.TLVU16(tagBuddyMaxTempBuddies, buddyMaxTempBuddies),
	)
	return sess.SendMessage(proto.Reply(snac, proto.BuddyRightsReply, body.Bytes()))
}

// ICBMParameters answers ICBM PARAMETER_QUERY.
func ICBMParameters(_ context.Context, sess *core.Session, snac proto.SNAC, _ []byte) error {
	body := proto.NewWriter().
		U16(icbmChannel).
		U32(icbmFlags).
		U16(icbmMaxMessageLen).
		U16(icbmMaxSourceEvil).
		U16(icbmMaxDestEvil).
		U32(icbmMinMsgInterval)
	return sess.SendMessage(proto.Reply(snac, proto.ICBMParameterReply, body.Bytes()))
}
