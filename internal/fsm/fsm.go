package fsm

import "errors"

// Stream is a byte-fed decoder yielding values of type T. Values are only
// returned once every byte composing them has been fed, which makes Stream
// indifferent to how reads are split on the wire.
type Stream[T any] interface {
	Reset()
	Feed(b byte) (*T, error)
	Pending() bool
}

// FSM is a running decoder built from a Def. Feed functions assemble the
// value being decoded in Value; Payload holds the bytes gathered for the
// current state.
type FSM[T any, S ~uint8, C any] struct {
	Value   *T
	Payload []byte

	def     *Def[T, S, C]
	state   S
	context *C
	need    int
	fed     int
}

// Reset drops any partially decoded value and returns the decoder to the
// definition's initial state.
func (i *FSM[T, S, C]) Reset() {
	i.state = i.def.InitialState
	i.need = i.def.InitialSize
	i.fed = 0
	i.Payload = i.Payload[:0]
	i.Value = new(T)
	*i.context = *new(C)
}

// Feed consumes a single byte. It returns a non-nil *T once a value is
// complete. Errors other than Done reset the decoder and are returned to the
// caller.
func (i *FSM[T, S, C]) Feed(b byte) (*T, error) {
	i.fed++
	if i.need > 0 {
		i.Payload = append(i.Payload, b)
		if i.need--; i.need > 0 {
			return nil, nil
		}
	}

	err := i.def.Feed(i, i.state, i.context, b)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, Done):
		v := *i.Value
		i.Reset()
		return &v, nil
	default:
		i.Reset()
		return nil, err
	}
}

// Pending reports whether bytes of an incomplete value have been consumed.
func (i *FSM[T, S, C]) Pending() bool { return i.fed > 0 }

// TransitionSatisfySize moves the decoder to next and gathers size bytes into
// Payload before Feed is invoked again.
func (i *FSM[T, S, C]) TransitionSatisfySize(next S, size int) {
	i.state = next
	i.need = size
	i.Payload = i.Payload[:0]
}

// CopyPayload returns an owned copy of the current payload.
func (i *FSM[T, S, C]) CopyPayload() []byte {
	out := make([]byte, len(i.Payload))
	copy(out, i.Payload)
	return out
}
