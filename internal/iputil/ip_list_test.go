package iputil

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubDefaultIPs(t *testing.T, ips []netip.Addr, err error) {
	t.Helper()
	prev := defaultIPsFn
	defaultIPsFn = func() ([]netip.Addr, error) { return ips, err }
	t.Cleanup(func() { defaultIPsFn = prev })
}

func TestGetDefaultIP(t *testing.T) {
	v4 := netip.MustParseAddr("10.0.0.7")
	v6 := netip.MustParseAddr("fd00::7")
	stubDefaultIPs(t, []netip.Addr{v6, v4}, nil)

	ip, err := GetDefaultIP(false)
	require.NoError(t, err)
	assert.Equal(t, v4, ip)

	ip, err = GetDefaultIP(true)
	require.NoError(t, err)
	assert.Equal(t, v6, ip)
}

func TestGetDefaultIP_None(t *testing.T) {
	stubDefaultIPs(t, nil, nil)
	_, err := GetDefaultIP(false)
	assert.ErrorIs(t, err, NoAddressErr)
}

func TestAdvertiseAddress(t *testing.T) {
	stubDefaultIPs(t, []netip.Addr{netip.MustParseAddr("10.0.0.7")}, nil)

	for in, want := range map[string]string{
		":5191":              "10.0.0.7:5191",
		"0.0.0.0:5191":       "10.0.0.7:5191",
		"[::]:5191":          "10.0.0.7:5191",
		"192.168.1.2:5191":   "192.168.1.2:5191",
		"oscar.example:5191": "oscar.example:5191",
	} {
		got, err := AdvertiseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := AdvertiseAddress("nope")
	assert.Error(t, err)
	_, err = AdvertiseAddress(":99999")
	assert.Error(t, err)
}

func TestAdvertiseAddress_FallsBackToLoopback(t *testing.T) {
	stubDefaultIPs(t, nil, assert.AnError)
	got, err := AdvertiseAddress(":5191")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5191", got)
}
