package logutil

import (
	"encoding/hex"
	"fmt"

	"github.com/heyvito/goscar/internal/containers"
	"go.uber.org/zap"
)

// StringerArr is a utility zap.Field that takes a name and a list of items
// that implements fmt.Stringer, including in the string slice returned the
// value returned by each item's String() method.
func StringerArr[S interface{ ~[]E }, E fmt.Stringer](name string, arr S) zap.Field {
	return zap.Strings(name, containers.StrMapper(arr))
}

// HexPreview hex-encodes at most limit bytes of data. Longer inputs are
// suffixed with an ellipsis.
func HexPreview(name string, data []byte, limit int) zap.Field {
	if len(data) <= limit {
		return zap.String(name, hex.EncodeToString(data))
	}
	return zap.String(name, hex.EncodeToString(data[:limit])+"...")
}
