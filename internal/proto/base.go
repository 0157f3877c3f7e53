package proto

import (
	"encoding/binary"
	"fmt"
)

// Encoder is implemented by every structure that can be written to the wire.
type Encoder interface {
	// RequiredSize returns the amount of bytes required to encode the current
	// structure.
	RequiredSize() int

	// Encode encodes the current structure into the provided buffer. The
	// buffer must have at least RequiredSize bytes.
	Encode(into []byte)
}

var (
	u16Marshal = binary.BigEndian.PutUint16
	u32Marshal = binary.BigEndian.PutUint32
	u16        = binary.BigEndian.Uint16
	u32        = binary.BigEndian.Uint32
)

// Family identifies a SNAC foodgroup. Subtype values are only meaningful
// within their family.
type Family uint16

const (
	FamilyOService   Family = 0x0001
	FamilyLocate     Family = 0x0002
	FamilyBuddy      Family = 0x0003
	FamilyICBM       Family = 0x0004
	FamilyAdvert     Family = 0x0005
	FamilyInvite     Family = 0x0006
	FamilyAdmin      Family = 0x0007
	FamilyPopup      Family = 0x0008
	FamilyPD         Family = 0x0009
	FamilyUserLookup Family = 0x000A
	FamilyStats      Family = 0x000B
	FamilyTranslate  Family = 0x000C
	FamilyChatNav    Family = 0x000D
	FamilyChat       Family = 0x000E
	FamilyODir       Family = 0x000F
	FamilyBART       Family = 0x0010
	FamilyFeedbag    Family = 0x0013
	FamilyICQ        Family = 0x0015
	FamilyBUCP       Family = 0x0017
	FamilyAlert      Family = 0x0018
	FamilyPlugin     Family = 0x0022
	FamilyMDir       Family = 0x0025
	FamilyARS        Family = 0x004A
)

var familyNames = map[Family]string{
	FamilyOService:   "OSERVICE",
	FamilyLocate:     "LOCATE",
	FamilyBuddy:      "BUDDY",
	FamilyICBM:       "ICBM",
	FamilyAdvert:     "ADVERT",
	FamilyInvite:     "INVITE",
	FamilyAdmin:      "ADMIN",
	FamilyPopup:      "POPUP",
	FamilyPD:         "PD",
	FamilyUserLookup: "USER_LOOKUP",
	FamilyStats:      "STATS",
	FamilyTranslate:  "TRANSLATE",
	FamilyChatNav:    "CHAT_NAV",
	FamilyChat:       "CHAT",
	FamilyODir:       "ODIR",
	FamilyBART:       "BART",
	FamilyFeedbag:    "FEEDBAG",
	FamilyICQ:        "ICQ",
	FamilyBUCP:       "BUCP",
	FamilyAlert:      "ALERT",
	FamilyPlugin:     "PLUGIN",
	FamilyMDir:       "MDIR",
	FamilyARS:        "ARS",
}

// Known reports whether f belongs to the set of families this package
// recognizes.
func (f Family) Known() bool {
	_, ok := familyNames[f]
	return ok
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Family(0x%04x)", uint16(f))
}

// OSERVICE subtypes
const (
	OServiceErr               uint16 = 0x01
	OServiceClientOnline      uint16 = 0x02
	OServiceHostOnline        uint16 = 0x03
	OServiceServiceRequest    uint16 = 0x04
	OServiceServiceResponse   uint16 = 0x05
	OServiceRateParamsQuery   uint16 = 0x06
	OServiceRateParamsReply   uint16 = 0x07
	OServiceRateParamsSubAdd  uint16 = 0x08
	OServiceRateDelParamSub   uint16 = 0x09
	OServiceRateParamChange   uint16 = 0x0A
	OServicePauseReq          uint16 = 0x0B
	OServicePauseAck          uint16 = 0x0C
	OServiceResume            uint16 = 0x0D
	OServiceUserInfoQuery     uint16 = 0x0E
	OServiceUserInfoUpdate    uint16 = 0x0F
	OServiceEvilNotification  uint16 = 0x10
	OServiceIdleNotification  uint16 = 0x11
	OServiceMigrateGroups     uint16 = 0x12
	OServiceMOTD              uint16 = 0x13
	OServiceSetPrivacyFlags   uint16 = 0x14
	OServiceWellKnownURLs     uint16 = 0x15
	OServiceNoop              uint16 = 0x16
	OServiceClientVersions    uint16 = 0x17
	OServiceHostVersions      uint16 = 0x18
	OServiceMaxConfigQuery    uint16 = 0x19
	OServiceMaxConfigReply    uint16 = 0x1A
	OServiceStoreConfig       uint16 = 0x1B
	OServiceConfigQuery       uint16 = 0x1C
	OServiceConfigReply       uint16 = 0x1D
	OServiceSetUserInfoFields uint16 = 0x1E
	OServiceProbeReq          uint16 = 0x1F
	OServiceProbeAck          uint16 = 0x20
	OServiceBARTReply         uint16 = 0x21
	OServiceBARTQuery2        uint16 = 0x22
	OServiceBARTReply2        uint16 = 0x23
)

// BUCP subtypes
const (
	BUCPErr                  uint16 = 0x01
	BUCPLoginRequest         uint16 = 0x02
	BUCPLoginResponse        uint16 = 0x03
	BUCPRegisterRequest      uint16 = 0x04
	BUCPRegisterResponse     uint16 = 0x05
	BUCPChallengeRequest     uint16 = 0x06
	BUCPChallengeResponse    uint16 = 0x07
	BUCPASASNRequest         uint16 = 0x08
	BUCPASASNResponse        uint16 = 0x09
	BUCPSecurIDRequest       uint16 = 0x0A
	BUCPSecurIDResponse      uint16 = 0x0B
	BUCPRegistrationImage    uint16 = 0x0C
	BUCPRegistrationResponse uint16 = 0x0D
)

// LOCATE subtypes
const (
	LocateErr         uint16 = 0x01
	LocateRightsQuery uint16 = 0x02
	LocateRightsReply uint16 = 0x03
	LocateSetInfo     uint16 = 0x04
	LocateUserInfo    uint16 = 0x05
)

// BUDDY subtypes
const (
	BuddyErr         uint16 = 0x01
	BuddyRightsQuery uint16 = 0x02
	BuddyRightsReply uint16 = 0x03
)

// ICBM subtypes
const (
	ICBMErr            uint16 = 0x01
	ICBMAddParameters  uint16 = 0x02
	ICBMDelParameters  uint16 = 0x03
	ICBMParameterQuery uint16 = 0x04
	ICBMParameterReply uint16 = 0x05
)

// FEEDBAG subtypes
const (
	FeedbagErr              uint16 = 0x01
	FeedbagRightsQuery      uint16 = 0x02
	FeedbagRightsReply      uint16 = 0x03
	FeedbagQuery            uint16 = 0x04
	FeedbagQueryIfModified  uint16 = 0x05
	FeedbagReply            uint16 = 0x06
	FeedbagUse              uint16 = 0x07
	FeedbagInsertItem       uint16 = 0x08
	FeedbagUpdateItem       uint16 = 0x09
	FeedbagDeleteItem       uint16 = 0x0A
	FeedbagStatus           uint16 = 0x0E
	FeedbagReplyNotModified uint16 = 0x0F
	FeedbagStartCluster     uint16 = 0x11
	FeedbagEndCluster       uint16 = 0x12
)

var subtypeNames = map[Family]map[uint16]string{
	FamilyOService: {
		OServiceErr:               "ERR",
		OServiceClientOnline:      "CLIENT_ONLINE",
		OServiceHostOnline:        "HOST_ONLINE",
		OServiceServiceRequest:    "SERVICE_REQUEST",
		OServiceServiceResponse:   "SERVICE_RESPONSE",
		OServiceRateParamsQuery:   "RATE_PARAMS_QUERY",
		OServiceRateParamsReply:   "RATE_PARAMS_REPLY",
		OServiceRateParamsSubAdd:  "RATE_PARAMS_SUB_ADD",
		OServiceRateDelParamSub:   "RATE_DEL_PARAM_SUB",
		OServiceRateParamChange:   "RATE_PARAM_CHANGE",
		OServicePauseReq:          "PAUSE_REQ",
		OServicePauseAck:          "PAUSE_ACK",
		OServiceResume:            "RESUME",
		OServiceUserInfoQuery:     "USER_INFO_QUERY",
		OServiceUserInfoUpdate:    "USER_INFO_UPDATE",
		OServiceEvilNotification:  "EVIL_NOTIFICATION",
		OServiceIdleNotification:  "IDLE_NOTIFICATION",
		OServiceMigrateGroups:     "MIGRATE_GROUPS",
		OServiceMOTD:              "MOTD",
		OServiceSetPrivacyFlags:   "SET_PRIVACY_FLAGS",
		OServiceWellKnownURLs:     "WELL_KNOWN_URLS",
		OServiceNoop:              "NOOP",
		OServiceClientVersions:    "CLIENT_VERSIONS",
		OServiceHostVersions:      "HOST_VERSIONS",
		OServiceMaxConfigQuery:    "MAX_CONFIG_QUERY",
		OServiceMaxConfigReply:    "MAX_CONFIG_REPLY",
		OServiceStoreConfig:       "STORE_CONFIG",
		OServiceConfigQuery:       "CONFIG_QUERY",
		OServiceConfigReply:       "CONFIG_REPLY",
		OServiceSetUserInfoFields: "SET_USERINFO_FIELDS",
		OServiceProbeReq:          "PROBE_REQ",
		OServiceProbeAck:          "PROBE_ACK",
		OServiceBARTReply:         "BART_REPLY",
		OServiceBARTQuery2:        "BART_QUERY2",
		OServiceBARTReply2:        "BART_REPLY2",
	},
	FamilyBUCP: {
		BUCPErr:                  "ERR",
		BUCPLoginRequest:         "LOGIN_REQUEST",
		BUCPLoginResponse:        "LOGIN_RESPONSE",
		BUCPRegisterRequest:      "REGISTER_REQUEST",
		BUCPRegisterResponse:     "REGISTER_RESPONSE",
		BUCPChallengeRequest:     "CHALLENGE_REQUEST",
		BUCPChallengeResponse:    "CHALLENGE_RESPONSE",
		BUCPASASNRequest:         "ASASN_REQUEST",
		BUCPASASNResponse:        "ASASN_RESPONSE",
		BUCPSecurIDRequest:       "SECURID_REQUEST",
		BUCPSecurIDResponse:      "SECURID_RESPONSE",
		BUCPRegistrationImage:    "REGISTRATION_IMAGE",
		BUCPRegistrationResponse: "REGISTRATION_RESPONSE",
	},
	FamilyLocate: {
		LocateErr:         "ERR",
		LocateRightsQuery: "RIGHTS_QUERY",
		LocateRightsReply: "RIGHTS_REPLY",
		LocateSetInfo:     "SET_INFO",
		LocateUserInfo:    "USER_INFO",
	},
	FamilyBuddy: {
		BuddyErr:         "ERR",
		BuddyRightsQuery: "RIGHTS_QUERY",
		BuddyRightsReply: "RIGHTS_REPLY",
	},
	FamilyICBM: {
		ICBMErr:            "ERR",
		ICBMAddParameters:  "ADD_PARAMETERS",
		ICBMDelParameters:  "DEL_PARAMETERS",
		ICBMParameterQuery: "PARAMETER_QUERY",
		ICBMParameterReply: "PARAMETER_REPLY",
	},
	FamilyFeedbag: {
		FeedbagErr:              "ERR",
		FeedbagRightsQuery:      "RIGHTS_QUERY",
		FeedbagRightsReply:      "RIGHTS_REPLY",
		FeedbagQuery:            "QUERY",
		FeedbagQueryIfModified:  "QUERY_IF_MODIFIED",
		FeedbagReply:            "REPLY",
		FeedbagUse:              "USE",
		FeedbagInsertItem:       "INSERT_ITEM",
		FeedbagUpdateItem:       "UPDATE_ITEM",
		FeedbagDeleteItem:       "DELETE_ITEM",
		FeedbagStatus:           "STATUS",
		FeedbagReplyNotModified: "REPLY_NOT_MODIFIED",
		FeedbagStartCluster:     "START_CLUSTER",
		FeedbagEndCluster:       "END_CLUSTER",
	},
}

// SubtypeName returns a printable name for a subtype within a family.
// Unrecognized pairs render their raw value.
func SubtypeName(f Family, subtype uint16) string {
	if n, ok := subtypeNames[f][subtype]; ok {
		return n
	}
	return fmt.Sprintf("Subtype(0x%04x)", subtype)
}
