package proto

import "fmt"

// TLVHeaderSize is the size of the tag and length preceding a TLV value.
const TLVHeaderSize = 4

// TLV is a tagged field. The meaning of Tag depends on the message carrying
// it; this package does not interpret it.
type TLV struct {
	Tag   uint16
	Value []byte
}

func (t TLV) RequiredSize() int { return TLVHeaderSize + len(t.Value) }

func (t TLV) Encode(into []byte) {
	u16Marshal(into, t.Tag)
	u16Marshal(into[2:], uint16(len(t.Value)))
	copy(into[4:], t.Value)
}

// U8 returns the value as an 8-bit integer.
func (t TLV) U8() (uint8, error) {
	if len(t.Value) != 1 {
		return 0, FieldWidthError{Tag: t.Tag, Expected: 1, Actual: len(t.Value)}
	}
	return t.Value[0], nil
}

// U16 returns the value as a big-endian 16-bit integer.
func (t TLV) U16() (uint16, error) {
	if len(t.Value) != 2 {
		return 0, FieldWidthError{Tag: t.Tag, Expected: 2, Actual: len(t.Value)}
	}
	return u16(t.Value), nil
}

// U32 returns the value as a big-endian 32-bit integer.
func (t TLV) U32() (uint32, error) {
	if len(t.Value) != 4 {
		return 0, FieldWidthError{Tag: t.Tag, Expected: 4, Actual: len(t.Value)}
	}
	return u32(t.Value), nil
}

// Text returns the value as a string.
func (t TLV) Text() string { return string(t.Value) }

// TLVBytes returns a TLV carrying a copy of value.
func TLVBytes(tag uint16, value []byte) TLV {
	v := make([]byte, len(value))
	copy(v, value)
	return TLV{Tag: tag, Value: v}
}

// TLVString returns a TLV carrying s.
func TLVString(tag uint16, s string) TLV {
	return TLV{Tag: tag, Value: []byte(s)}
}

// TLVU8 returns a TLV carrying a single byte.
func TLVU8(tag uint16, v uint8) TLV {
	return TLV{Tag: tag, Value: []byte{v}}
}

// TLVU16 returns a TLV carrying a big-endian 16-bit integer.
func TLVU16(tag uint16, v uint16) TLV {
	value := make([]byte, 2)
	u16Marshal(value, v)
	return TLV{Tag: tag, Value: value}
}

// TLVU32 returns a TLV carrying a big-endian 32-bit integer.
func TLVU32(tag uint16, v uint32) TLV {
	value := make([]byte, 4)
	u32Marshal(value, v)
	return TLV{Tag: tag, Value: value}
}

// DecodeTLV decodes the TLV starting at offset within b, returning it along
// with the amount of bytes it occupies. The returned value is a copy and
// does not alias b. TruncatedErr is returned when fewer than TLVHeaderSize
// bytes remain, or when the declared length exceeds the remaining bytes.
func DecodeTLV(b []byte, offset int) (TLV, int, error) {
	if offset < 0 || offset > len(b) || len(b)-offset < TLVHeaderSize {
		return TLV{}, 0, TruncatedErr
	}
	rest := b[offset:]
	tag := u16(rest)
	length := int(u16(rest[2:]))
	if length > len(rest)-TLVHeaderSize {
		return TLV{}, 0, fmt.Errorf("%w: TLV 0x%04x declares %d bytes, %d available",
			TruncatedErr, tag, length, len(rest)-TLVHeaderSize)
	}
	return TLVBytes(tag, rest[TLVHeaderSize:TLVHeaderSize+length]), TLVHeaderSize + length, nil
}

// TLVReader walks a block of back-to-back TLVs.
type TLVReader struct {
	data   []byte
	offset int
}

// NewTLVReader returns a TLVReader over data.
func NewTLVReader(data []byte) *TLVReader {
	return &TLVReader{data: data}
}

// More reports whether unread bytes remain.
func (r *TLVReader) More() bool { return r.offset < len(r.data) }

// Next decodes the next TLV. Any failure, including a TLV overshooting the
// block, is reported as MalformedBodyErr.
func (r *TLVReader) Next() (TLV, error) {
	t, n, err := DecodeTLV(r.data, r.offset)
	if err != nil {
		return TLV{}, fmt.Errorf("%w: %w", MalformedBodyErr, err)
	}
	r.offset += n
	return t, nil
}

// ReadTLVs decodes data as a block of TLVs, requiring it to be consumed
// exactly.
func ReadTLVs(data []byte) (TLVBlock, error) {
	var block TLVBlock
	r := NewTLVReader(data)
	for r.More() {
		t, err := r.Next()
		if err != nil {
			return nil, err
		}
		block = append(block, t)
	}
	return block, nil
}

// TLVBlock is an ordered list of TLVs.
type TLVBlock []TLV

// Get returns the first TLV tagged with tag.
func (b TLVBlock) Get(tag uint16) (TLV, bool) {
	for _, t := range b {
		if t.Tag == tag {
			return t, true
		}
	}
	return TLV{}, false
}

// Has reports whether a TLV tagged with tag is present.
func (b TLVBlock) Has(tag uint16) bool {
	_, ok := b.Get(tag)
	return ok
}

func (b TLVBlock) RequiredSize() int {
	size := 0
	for _, t := range b {
		size += t.RequiredSize()
	}
	return size
}

func (b TLVBlock) Encode(into []byte) {
	newWriterInto(into).TLVs(b...)
}
