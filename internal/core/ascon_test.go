package core

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sharedKey = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf}

func TestSealerKeySize(t *testing.T) {
	_, err := NewSealer(nil)
	assert.Error(t, err)
	_, err = NewSealer(make([]byte, 15))
	assert.Error(t, err)
}

func TestSealer(t *testing.T) {
	otherKey := append([]byte{}, sharedKey...)
	slices.Reverse(otherKey)

	data := []byte{1, 2, 3, 4, 5}
	ad := []byte("ad")

	t.Run("round-trip", func(t *testing.T) {
		s, err := NewSealer(sharedKey)
		require.NoError(t, err)

		sealed, err := s.Seal(data, ad)
		require.NoError(t, err)
		require.NotEqual(t, sealed, data)
		assert.Len(t, sealed, asconNonceSize+len(data)+asconTagSize)

		open, err := s.Open(sealed, ad)
		require.NoError(t, err)
		require.Equal(t, data, open)
	})

	t.Run("wrong key", func(t *testing.T) {
		s1, err := NewSealer(otherKey)
		require.NoError(t, err)
		s2, err := NewSealer(sharedKey)
		require.NoError(t, err)

		sealed, err := s1.Seal(data, ad)
		require.NoError(t, err)

		_, err = s2.Open(sealed, ad)
		assert.ErrorIs(t, err, InvalidSealErr)
	})

	t.Run("wrong associated data", func(t *testing.T) {
		s, err := NewSealer(sharedKey)
		require.NoError(t, err)
		sealed, err := s.Seal(data, ad)
		require.NoError(t, err)
		_, err = s.Open(sealed, []byte("other"))
		assert.ErrorIs(t, err, InvalidSealErr)
	})

	t.Run("short input", func(t *testing.T) {
		s, err := NewSealer(sharedKey)
		require.NoError(t, err)
		_, err = s.Open([]byte{1, 2, 3}, ad)
		assert.ErrorIs(t, err, InvalidSealErr)
	})
}
