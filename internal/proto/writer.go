package proto

// Writer is an append-only buffer used to build outbound bodies. Every
// method returns the Writer itself so calls can be chained.
type Writer struct {
	buffer []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buffer: make([]byte, 0, 64)}
}

// newWriterInto returns a Writer appending into the provided buffer, which
// must have enough length for everything that will be written.
func newWriterInto(buf []byte) *Writer {
	return &Writer{buffer: buf[:0]}
}

func (w *Writer) U8(b uint8) *Writer {
	w.buffer = append(w.buffer, b)
	return w
}

func (w *Writer) U16(val uint16) *Writer {
	w.buffer = append(w.buffer, byte(val>>8), byte(val))
	return w
}

func (w *Writer) U32(val uint32) *Writer {
	w.buffer = append(w.buffer, byte(val>>24), byte(val>>16), byte(val>>8), byte(val))
	return w
}

// Raw appends value as-is.
func (w *Writer) Raw(value []byte) *Writer {
	w.buffer = append(w.buffer, value...)
	return w
}

// LStr8 appends s prefixed by its length as an 8-bit integer. s is
// truncated to 255 bytes.
func (w *Writer) LStr8(s string) *Writer {
	if len(s) > 0xFF {
		s = s[:0xFF]
	}
	return w.U8(uint8(len(s))).Raw([]byte(s))
}

// LStr16 appends s prefixed by its length as a 16-bit integer. s is
// truncated to MaxPayloadSize bytes.
func (w *Writer) LStr16(s string) *Writer {
	if len(s) > MaxPayloadSize {
		s = s[:MaxPayloadSize]
	}
	return w.U16(uint16(len(s))).Raw([]byte(s))
}

// Encoder appends the encoded form of obj.
func (w *Writer) Encoder(obj Encoder) *Writer {
	start := len(w.buffer)
	size := obj.RequiredSize()
	w.buffer = append(w.buffer, make([]byte, size)...)
	obj.Encode(w.buffer[start : start+size])
	return w
}

// TLVs appends each provided TLV.
func (w *Writer) TLVs(items ...TLV) *Writer {
	for _, t := range items {
		w.Encoder(t)
	}
	return w
}

// Len returns the amount of bytes written so far.
func (w *Writer) Len() int { return len(w.buffer) }

// Bytes returns the written buffer.
func (w *Writer) Bytes() []byte { return w.buffer }
