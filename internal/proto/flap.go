package proto

import "fmt"

// FLAPMarker is the start byte preceding every frame on the wire.
const FLAPMarker byte = '*'

// FLAPHeaderSize is the size of an encoded FLAP envelope.
const FLAPHeaderSize = 6

// MaxPayloadSize is the largest payload a single frame can carry.
const MaxPayloadSize = 0xFFFF

// FrameType identifies the channel of a FLAP frame.
type FrameType uint8

const (
	FrameSignOn    FrameType = 0x01
	FrameData      FrameType = 0x02
	FrameError     FrameType = 0x03
	FrameSignOff   FrameType = 0x04
	FrameKeepAlive FrameType = 0x05
)

func (f FrameType) String() string {
	switch f {
	case FrameSignOn:
		return "SIGNON"
	case FrameData:
		return "DATA"
	case FrameError:
		return "ERROR"
	case FrameSignOff:
		return "SIGNOFF"
	case FrameKeepAlive:
		return "KEEPALIVE"
	}
	return fmt.Sprintf("FrameType(0x%02x)", uint8(f))
}

// FLAP is the envelope preceding every frame payload.
type FLAP struct {
	Type     FrameType
	Sequence uint16
	Length   uint16
}

func (f FLAP) RequiredSize() int { return FLAPHeaderSize }

func (f FLAP) Encode(into []byte) {
	into[0] = FLAPMarker
	into[1] = byte(f.Type)
	u16Marshal(into[2:], f.Sequence)
	u16Marshal(into[4:], f.Length)
}

// EncodeFLAP returns the envelope for a frame of the given type, sequence
// number and payload length.
func EncodeFLAP(t FrameType, sequence, length uint16) []byte {
	buf := make([]byte, FLAPHeaderSize)
	FLAP{Type: t, Sequence: sequence, Length: length}.Encode(buf)
	return buf
}

// DecodeFLAP decodes the envelope present at the beginning of b. The payload
// is not consumed; callers use Length to read it.
func DecodeFLAP(b []byte) (FLAP, error) {
	if len(b) < FLAPHeaderSize {
		return FLAP{}, TruncatedErr
	}
	if b[0] != FLAPMarker {
		return FLAP{}, fmt.Errorf("%w: marker 0x%02x", MalformedEnvelopeErr, b[0])
	}
	return FLAP{
		Type:     FrameType(b[1]),
		Sequence: u16(b[2:]),
		Length:   u16(b[4:]),
	}, nil
}

// Frame is a FLAP envelope along with its payload.
type Frame struct {
	FLAP
	Payload []byte
}

func (f Frame) RequiredSize() int { return FLAPHeaderSize + len(f.Payload) }

// Encode encodes the frame, deriving the envelope length from the payload.
func (f Frame) Encode(into []byte) {
	hdr := f.FLAP
	hdr.Length = uint16(len(f.Payload))
	newWriterInto(into).Encoder(hdr).Raw(f.Payload)
}
