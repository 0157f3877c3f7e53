package proto

// SNACHeaderSize is the size of an encoded SNAC header.
const SNACHeaderSize = 10

// SNAC is the header carried at the beginning of every DATA frame payload.
type SNAC struct {
	Family    Family
	Subtype   uint16
	Flags     uint16
	RequestID uint32
}

func (s SNAC) RequiredSize() int { return SNACHeaderSize }

func (s SNAC) Encode(into []byte) {
	newWriterInto(into).
		U16(uint16(s.Family)).
		U16(s.Subtype).
		U16(s.Flags).
		U32(s.RequestID)
}

func (s SNAC) String() string {
	return s.Family.String() + "/" + SubtypeName(s.Family, s.Subtype)
}

// EncodeSNAC returns an encoded SNAC header.
func EncodeSNAC(family Family, subtype, flags uint16, requestID uint32) []byte {
	buf := make([]byte, SNACHeaderSize)
	SNAC{Family: family, Subtype: subtype, Flags: flags, RequestID: requestID}.Encode(buf)
	return buf
}

// DecodeSNAC decodes the header present at the beginning of b, returning it
// along with the remaining body. The body aliases b.
func DecodeSNAC(b []byte) (SNAC, []byte, error) {
	if len(b) < SNACHeaderSize {
		return SNAC{}, nil, TruncatedErr
	}
	return SNAC{
		Family:    Family(u16(b)),
		Subtype:   u16(b[2:]),
		Flags:     u16(b[4:]),
		RequestID: u32(b[6:]),
	}, b[SNACHeaderSize:], nil
}

// Message is an outbound SNAC along with its encoded body.
type Message struct {
	SNAC
	Body []byte
}

func (m Message) RequiredSize() int { return SNACHeaderSize + len(m.Body) }

func (m Message) Encode(into []byte) {
	newWriterInto(into).Encoder(m.SNAC).Raw(m.Body)
}

// Reply returns a Message answering req with the given subtype, echoing its
// family and request ID.
func Reply(req SNAC, subtype uint16, body []byte) Message {
	return Message{
		SNAC: SNAC{Family: req.Family, Subtype: subtype, RequestID: req.RequestID},
		Body: body,
	}
}
