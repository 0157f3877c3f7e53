package handlers

import (
	"github.com/heyvito/goscar/internal/core"
	"github.com/heyvito/goscar/internal/proto"
)

// parseClientDescriptor walks a login request and collects what the client
// says about itself. Fields with an unexpected width are rejected with a
// proto.FieldWidthError.
func parseClientDescriptor(tlvs proto.TLVBlock) (core.ClientDescriptor, error) {
	var c core.ClientDescriptor
	var err error
	for _, t := range tlvs {
		switch t.Tag {
		case TagScreenName:
			c.ScreenName = t.Text()
		case TagClientID:
			c.ClientID = t.Text()
		case TagClientCode:
			c.ClientCode, err = t.U16()
		case TagVersionMajor:
			c.Major, err = t.U16()
		case TagVersionMinor:
			c.Minor, err = t.U16()
		case TagVersionLesser:
			c.Lesser, err = t.U16()
		case TagBuildNumber:
			c.Build, err = t.U16()
		case TagDistribution:
			c.Distribution, err = t.U32()
		case TagLanguage:
			c.Language = t.Text()
		case TagCountry:
			c.Country = t.Text()
		case TagMultiConn:
			var v uint8
			v, err = t.U8()
			c.MultiConn = v != 0
		case TagReconnect:
			var v uint8
			v, err = t.U8()
			c.Reconnect = v != 0
		}
		if err != nil {
			return c, err
		}
	}
	return c, nil
}
