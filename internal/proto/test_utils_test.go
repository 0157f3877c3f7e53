package proto

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/heyvito/goscar/internal/fsm"
	"github.com/stretchr/testify/require"
)

func hex2Bytes(data string) []byte {
	data = strings.ReplaceAll(data, "\n", "")
	data = strings.ReplaceAll(data, "\t", "")
	data = strings.ReplaceAll(data, " ", "")
	value, err := hex.DecodeString(data)
	if err != nil {
		panic(fmt.Sprintf("Failed reading hex data: %s", err))
	}

	return value
}

func encodeEncoder(enc Encoder) []byte {
	buf := make([]byte, enc.RequiredSize())
	enc.Encode(buf)
	return buf
}

// decodeStream feeds data to a fresh decoder and returns every value it
// yields, failing the test on any error.
func decodeStream[T any](t *testing.T, def fsm.StreamDef[T], data []byte) []*T {
	t.Helper()
	dec := def.New()
	var out []*T
	for _, v := range data {
		r, err := dec.Feed(v)
		require.NoError(t, err)
		if r != nil {
			out = append(out, r)
		}
	}
	require.False(t, dec.Pending(), "decoder retained %d partial bytes", len(data))
	return out
}
