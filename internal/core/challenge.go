package core

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/heyvito/goscar/internal/store"
)

// AuthMagic is appended to every challenge digest.
const AuthMagic = "AOL Instant Messenger (SM)"

// ChallengeEntropy is the amount of random bytes backing a challenge.
const ChallengeEntropy = 64

// NewChallenge returns a printable challenge backed by ChallengeEntropy
// random bytes.
func NewChallenge() (string, error) {
	buf := make([]byte, ChallengeEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", ResourceError{Kind: AllocationFailed, Err: err}
	}
	return hex.EncodeToString(buf), nil
}

// ResponseDigest computes the digest a client must present for a challenge
// and a stored password digest.
func ResponseDigest(challenge string, stored [store.DigestSize]byte) [md5.Size]byte {
	h := md5.New()
	h.Write([]byte(challenge))
	h.Write(stored[:])
	h.Write([]byte(AuthMagic))
	var out [md5.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyResponse reports whether response matches the digest expected for
// challenge and stored. The comparison always covers the full digest.
func VerifyResponse(challenge string, stored [store.DigestSize]byte, response []byte) bool {
	if challenge == "" || len(response) != md5.Size {
		return false
	}
	expected := ResponseDigest(challenge, stored)
	return subtle.ConstantTimeCompare(expected[:], response) == 1
}
