package proto

// Reader consumes fixed-width fields from an inbound body. Reads past the end
// of the buffer yield TruncatedErr.
type Reader struct {
	data   []byte
	offset int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the amount of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.offset }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, TruncatedErr
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return u16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return u32(b), nil
}

// Raw returns a copy of the next n bytes.
func (r *Reader) Raw(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// LStr8 reads a string prefixed by its 8-bit length.
func (r *Reader) LStr8() (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// LStr16 reads a string prefixed by its 16-bit length.
func (r *Reader) LStr16() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Rest returns a copy of every unread byte.
func (r *Reader) Rest() []byte {
	b, _ := r.Raw(r.Remaining())
	return b
}
