package proto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLV_Encoders(t *testing.T) {
	tests := []struct {
		name     string
		tlv      TLV
		expected string
	}{
		{"u8", TLVU8(0x4A, 1), `004A 0001 01`},
		{"u16", TLVU16(0x16, 0x010A), `0016 0002 010A`},
		{"u32", TLVU32(0x14, 0x0000D2), `0014 0004 000000D2`},
		{"string", TLVString(0x01, "neato"), `0001 0005 6E6561746F`},
		{"empty", TLVBytes(0x4C, nil), `004C 0000`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, hex2Bytes(tt.expected), encodeEncoder(tt.tlv))
		})
	}
}

func TestTLV_RoundTrip(t *testing.T) {
	values := [][]byte{
		{},
		{0x01},
		[]byte("AOL Instant Messenger (SM)"),
		bytes.Repeat([]byte{0x5A}, 0xFFFF),
	}
	for _, v := range values {
		encoded := encodeEncoder(TLVBytes(0x25, v))
		decoded, n, err := DecodeTLV(encoded, 0)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.Equal(t, uint16(0x25), decoded.Tag)
		assert.Equal(t, v, decoded.Value)
	}
}

func TestDecodeTLV_Offset(t *testing.T) {
	data := hex2Bytes(`0001 0002 AAAA 0002 0000 0003 0001 FF`)
	first, n, err := DecodeTLV(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, uint16(1), first.Tag)

	second, n, err := DecodeTLV(data, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint16(2), second.Tag)
	assert.Empty(t, second.Value)

	third, _, err := DecodeTLV(data, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, third.Value)

	_, _, err = DecodeTLV(data, len(data))
	assert.ErrorIs(t, err, TruncatedErr)
}

func TestDecodeTLV_Truncated(t *testing.T) {
	full := hex2Bytes(`0001 0002 AAAA`)
	for i := 0; i < TLVHeaderSize; i++ {
		_, _, err := DecodeTLV(full[:i], 0)
		assert.ErrorIs(t, err, TruncatedErr, "length %d", i)
	}

	t.Run("declared length exceeds buffer", func(t *testing.T) {
		data := append(hex2Bytes(`0001 01F4`), make([]byte, 10)...)
		_, _, err := DecodeTLV(data, 0)
		assert.ErrorIs(t, err, TruncatedErr)
	})
}

func TestDecodeTLV_DoesNotAlias(t *testing.T) {
	data := hex2Bytes(`0001 0002 AAAA`)
	v, _, err := DecodeTLV(data, 0)
	require.NoError(t, err)
	data[4] = 0
	assert.Equal(t, []byte{0xAA, 0xAA}, v.Value)
}

func TestReadTLVs(t *testing.T) {
	t.Run("valid block", func(t *testing.T) {
		block, err := ReadTLVs(hex2Bytes(`0001 0005 6E6561746F 0016 0002 010A`))
		require.NoError(t, err)
		require.Len(t, block, 2)
		sn, ok := block.Get(0x01)
		require.True(t, ok)
		assert.Equal(t, "neato", sn.Text())
		id, ok := block.Get(0x16)
		require.True(t, ok)
		v, err := id.U16()
		require.NoError(t, err)
		assert.Equal(t, uint16(0x010A), v)
		assert.False(t, block.Has(0x25))
	})

	t.Run("empty block", func(t *testing.T) {
		block, err := ReadTLVs(nil)
		require.NoError(t, err)
		assert.Empty(t, block)
	})

	t.Run("overshoot", func(t *testing.T) {
		_, err := ReadTLVs(hex2Bytes(`0001 0005 6E6561 74`))
		assert.ErrorIs(t, err, MalformedBodyErr)
	})

	t.Run("dangling header bytes", func(t *testing.T) {
		_, err := ReadTLVs(hex2Bytes(`0001 0001 FF 00`))
		assert.ErrorIs(t, err, MalformedBodyErr)
	})

	t.Run("encode", func(t *testing.T) {
		block := TLVBlock{TLVU16(0x01, 0x100), TLVU32(0x06, 0)}
		data := encodeEncoder(block)
		back, err := ReadTLVs(data)
		require.NoError(t, err)
		assert.Equal(t, block, back)
	})
}

func TestTLV_WidthErrors(t *testing.T) {
	tlv := TLVString(0x17, "abc")
	_, err := tlv.U16()
	assert.ErrorIs(t, err, MalformedBodyErr)
	var widthErr FieldWidthError
	require.ErrorAs(t, err, &widthErr)
	assert.Equal(t, 2, widthErr.Expected)
	assert.Equal(t, 3, widthErr.Actual)

	_, err = tlv.U32()
	assert.Error(t, err)
	_, err = tlv.U8()
	assert.Error(t, err)
}
