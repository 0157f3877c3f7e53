package handlers

// TLV tags carried by BUCP login and challenge messages.
const (
	TagScreenName     uint16 = 0x01
	TagClientID       uint16 = 0x03
	TagErrorURL       uint16 = 0x04
	TagBOSAddress     uint16 = 0x05
	TagCookie         uint16 = 0x06
	TagErrorCode      uint16 = 0x08
	TagCountry        uint16 = 0x0E
	TagLanguage       uint16 = 0x0F
	TagEmail          uint16 = 0x11
	TagDistribution   uint16 = 0x14
	TagClientCode     uint16 = 0x16
	TagVersionMajor   uint16 = 0x17
	TagVersionMinor   uint16 = 0x18
	TagVersionLesser  uint16 = 0x19
	TagBuildNumber    uint16 = 0x1A
	TagPasswordDigest uint16 = 0x25
	TagMultiConn      uint16 = 0x4A
	TagReconnect      uint16 = 0x94
)

// TLV tags of the user info block sent in OSERVICE USER_INFO_UPDATE.
const (
	TagUserClass       uint16 = 0x01
	TagUserSignOnTime  uint16 = 0x03
	TagUserMemberSince uint16 = 0x05
	TagUserStatus      uint16 = 0x06
	TagUserExternalIP  uint16 = 0x0A
	TagUserOnlineTime  uint16 = 0x0F
	TagUserUnknown1E   uint16 = 0x1E
)

// Login error codes sent in TagErrorCode.
const (
	LoginErrInvalidNickOrPassword uint16 = 0x01
	LoginErrServiceUnavailable    uint16 = 0x02
	LoginErrInvalidPassword       uint16 = 0x05
)
