package fsm

// StreamDef is the exported form of a Def, allowing decoders to be created
// by other packages without knowing the state and context types.
type StreamDef[T any] interface {
	New() Stream[T]
}

type streamDef[T any, S ~uint8, C any] struct {
	def Def[T, S, C]
}

func (e streamDef[T, S, C]) New() Stream[T] { return e.def.New() }

// Def describes a decoder that emits values of type T while walking the
// states in S. C is scratch space kept between bytes of the same value and
// zeroed on every reset; use struct{} when none is needed.
type Def[T any, S ~uint8, C any] struct {
	// InitialSize is the amount of bytes gathered into Payload before Feed
	// is first invoked for a value. Optional.
	InitialSize int

	// InitialState is the state assumed after a reset.
	InitialState S

	// Feed handles incoming bytes for the current state. Returning Done hands
	// the assembled T to the caller; nil asks for more data; any other error
	// resets the FSM and is returned to the caller as-is. Required.
	Feed func(f *FSM[T, S, C], state S, ctx *C, b byte) error
}

// New returns a decoder ready to receive the first byte of a value.
func (d Def[T, S, C]) New() *FSM[T, S, C] {
	f := &FSM[T, S, C]{def: &d, context: new(C)}
	f.Reset()
	return f
}

// Export returns this Def as a StreamDef, hiding S and C from callers in
// other packages.
func (d Def[T, S, C]) Export() StreamDef[T] {
	return streamDef[T, S, C]{d}
}
