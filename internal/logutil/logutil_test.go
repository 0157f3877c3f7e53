package logutil

import (
	"testing"

	"github.com/heyvito/goscar/internal/proto"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestStringerArr(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	StringerArr("families", []proto.Family{proto.FamilyOService, proto.FamilyBUCP}).AddTo(enc)
	assert.Equal(t, []any{"OSERVICE", "BUCP"}, enc.Fields["families"])
}

func TestHexPreview(t *testing.T) {
	assert.Equal(t, "0102", HexPreview("body", []byte{1, 2}, 4).String)
	assert.Equal(t, "0102...", HexPreview("body", []byte{1, 2, 3}, 2).String)
	assert.Equal(t, "", HexPreview("body", nil, 2).String)
}
