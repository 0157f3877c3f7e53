package proto

import "github.com/heyvito/goscar/internal/fsm"

// fsmStates: flapDecoder header, payload

type flapDecoderState uint8

const (
	flapDecoderStateHeader flapDecoderState = iota
	flapDecoderStatePayload
)

// fsmStatesEnd

var flapDecoder = fsm.Def[Frame, flapDecoderState, struct{}]{
	InitialSize: FLAPHeaderSize,
	Feed: func(f *fsm.FSM[Frame, flapDecoderState, struct{}], state flapDecoderState, ctx *struct{}, b byte) error {
		switch state {
		case flapDecoderStateHeader:
			hdr, err := DecodeFLAP(f.Payload)
			if err != nil {
				return err
			}
			f.Value.FLAP = hdr
			if hdr.Length == 0 {
				f.Value.Payload = []byte{}
				return fsm.Done
			}
			f.TransitionSatisfySize(flapDecoderStatePayload, int(hdr.Length))

		case flapDecoderStatePayload:
			f.Value.Payload = f.CopyPayload()
			return fsm.Done
		}

		return nil
	},
}

// FLAPDecoder decodes a byte stream into Frame values. Bytes can be fed as
// they arrive; a frame is only yielded once its payload is complete. A bad
// marker yields MalformedEnvelopeErr.
var FLAPDecoder = flapDecoder.Export()
