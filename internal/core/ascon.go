package core

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/cloudflare/circl/cipher/ascon"
)

const (
	asconKeySize   = 16
	asconNonceSize = 16
	asconTagSize   = 16
)

// InvalidSealErr is returned when sealed data cannot be opened.
var InvalidSealErr = fmt.Errorf("sealed data could not be opened")

// Sealer seals and opens data with ASCON-128a. Sealed values carry their
// nonce as a prefix.
type Sealer interface {
	// Seal encrypts and authenticates data, binding it to ad.
	Seal(data, ad []byte) ([]byte, error)

	// Open authenticates and decrypts data sealed with the same key and ad.
	Open(data, ad []byte) ([]byte, error)
}

// NewSealer returns a Sealer for a 16-byte key.
func NewSealer(key []byte) (Sealer, error) {
	if len(key) != asconKeySize {
		return nil, fmt.Errorf("sealer key must have %d bytes, got %d", asconKeySize, len(key))
	}
	encCipher, err := ascon.New(key, ascon.Ascon128a)
	if err != nil {
		return nil, err
	}
	decCipher, err := ascon.New(key, ascon.Ascon128a)
	if err != nil {
		return nil, err
	}

	return &asconSealer{
		encodeCipher: encCipher,
		decodeCipher: decCipher,
	}, nil
}

type asconSealer struct {
	encodeMu     sync.Mutex
	encodeCipher *ascon.Cipher

	decodeMu     sync.Mutex
	decodeCipher *ascon.Cipher
}

func (a *asconSealer) Seal(data, ad []byte) ([]byte, error) {
	nonce := make([]byte, asconNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	a.encodeMu.Lock()
	defer a.encodeMu.Unlock()
	cipherText := a.encodeCipher.Seal(nil, nonce, data, ad)
	return append(nonce, cipherText...), nil
}

func (a *asconSealer) Open(data, ad []byte) ([]byte, error) {
	if len(data) < asconNonceSize+asconTagSize {
		return nil, InvalidSealErr
	}

	a.decodeMu.Lock()
	defer a.decodeMu.Unlock()
	result, err := a.decodeCipher.Open(nil, data[:asconNonceSize], data[asconNonceSize:], ad)
	if err != nil {
		return nil, InvalidSealErr
	}
	return result, nil
}
