package core

import (
	"encoding/binary"
	"fmt"
	"time"
)

var cookieAD = []byte("goscar login cookie v1")

// ExpiredCookieErr is returned when a cookie was sealed correctly but is no
// longer valid.
var ExpiredCookieErr = fmt.Errorf("login cookie expired")

// Cookies issues the opaque login cookie handed to clients by the
// authentication service, and validates it when presented to BOS.
type Cookies struct {
	sealer Sealer
	ttl    time.Duration
	nowFn  func() time.Time
}

// NewCookies returns a Cookies using sealer, with cookies valid for ttl.
func NewCookies(sealer Sealer, ttl time.Duration) *Cookies {
	return &Cookies{sealer: sealer, ttl: ttl, nowFn: time.Now}
}

// Issue returns a sealed cookie binding screenName to an expiry.
func (c *Cookies) Issue(screenName string) ([]byte, error) {
	plain := make([]byte, 8, 8+len(screenName))
	binary.BigEndian.PutUint64(plain, uint64(c.nowFn().Add(c.ttl).Unix()))
	plain = append(plain, screenName...)
	return c.sealer.Seal(plain, cookieAD)
}

// Open validates cookie and returns the screen name it was issued for.
func (c *Cookies) Open(cookie []byte) (string, error) {
	plain, err := c.sealer.Open(cookie, cookieAD)
	if err != nil {
		return "", err
	}
	if len(plain) < 8 {
		return "", InvalidSealErr
	}
	expiry := time.Unix(int64(binary.BigEndian.Uint64(plain)), 0)
	if c.nowFn().After(expiry) {
		return "", ExpiredCookieErr
	}
	return string(plain[8:]), nil
}
