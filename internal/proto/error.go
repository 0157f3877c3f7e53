package proto

import "fmt"

// MalformedEnvelopeErr indicates that a FLAP header did not start with the
// expected marker byte.
var MalformedEnvelopeErr = fmt.Errorf("malformed FLAP envelope")

// TruncatedErr indicates that a buffer ended before a header or a declared
// length could be satisfied.
var TruncatedErr = fmt.Errorf("truncated data")

// MalformedBodyErr indicates that a SNAC body could not be walked as
// declared, for instance when a TLV overshoots its enclosing block.
var MalformedBodyErr = fmt.Errorf("malformed message body")

// FieldWidthError indicates that a TLV value was read as a fixed-width
// integer, but its length does not match that width.
type FieldWidthError struct {
	Tag      uint16
	Expected int
	Actual   int
}

func (f FieldWidthError) Error() string {
	return fmt.Sprintf("TLV 0x%04x: expected %d bytes, got %d", f.Tag, f.Expected, f.Actual)
}

func (f FieldWidthError) Unwrap() error { return MalformedBodyErr }
