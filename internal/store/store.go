package store

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
)

// DigestSize is the size of a stored password digest.
const DigestSize = md5.Size

// NotFoundErr indicates that no credential matched a lookup.
var NotFoundErr = fmt.Errorf("credential not found")

// UserExistsErr indicates that a credential with the same identity already
// exists.
var UserExistsErr = fmt.Errorf("identity already registered")

// EmailExistsErr indicates that a credential with the same email already
// exists.
var EmailExistsErr = fmt.Errorf("email already registered")

// BadArgumentsErr indicates that Create was called with an empty field.
var BadArgumentsErr = fmt.Errorf("identity, email and password are required")

// Credential is a stored account. Only the digest of the password is ever
// kept.
type Credential struct {
	UIN            string
	Email          string
	PasswordDigest [DigestSize]byte
}

// Store persists credentials. Implementations must be safe for concurrent
// use, as every connection goroutine shares the same Store.
type Store interface {
	// FindByIdentity returns the credential registered under uin, or
	// NotFoundErr.
	FindByIdentity(ctx context.Context, uin string) (*Credential, error)

	// FindByEmail returns the credential registered under email, or
	// NotFoundErr.
	FindByEmail(ctx context.Context, email string) (*Credential, error)

	// Create registers a new credential, returning UserExistsErr or
	// EmailExistsErr when either is taken.
	Create(ctx context.Context, uin, email, password string) error

	// Close releases resources held by the store.
	Close() error
}

// DigestPassword returns the digest stored for a plaintext password.
func DigestPassword(password string) [DigestSize]byte {
	return md5.Sum([]byte(password))
}

// NormalizeIdentity folds a screen name into the form used as a key.
// Screen names are case-insensitive and ignore spaces.
func NormalizeIdentity(uin string) string {
	return strings.ToLower(strings.ReplaceAll(uin, " ", ""))
}

// NormalizeEmail folds an email address into the form used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCreate(uin, email, password string) error {
	if NormalizeIdentity(uin) == "" || NormalizeEmail(email) == "" || password == "" {
		return BadArgumentsErr
	}
	return nil
}
