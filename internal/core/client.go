package core

// ClientDescriptor describes the client software declared during login.
type ClientDescriptor struct {
	ScreenName   string
	ClientID     string
	ClientCode   uint16
	Major        uint16
	Minor        uint16
	Lesser       uint16
	Build        uint16
	Distribution uint32
	Language     string
	Country      string
	MultiConn    bool
	Reconnect    bool
}
