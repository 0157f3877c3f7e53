package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Runs against a live database when GOSCAR_TEST_POSTGRES_DSN is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("GOSCAR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GOSCAR_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := OpenPostgres(ctx, zap.NewNop(), dsn)
	require.NoError(t, err)
	defer s.Close()

	suffix := time.Now().UnixNano()
	uin := fmt.Sprintf("Test User %d", suffix)
	email := fmt.Sprintf("test-%d@example.com", suffix)
	require.NoError(t, s.Create(ctx, uin, email, "secret"))

	c, err := s.FindByIdentity(ctx, uin)
	require.NoError(t, err)
	assert.Equal(t, uin, c.UIN)
	assert.Equal(t, DigestPassword("secret"), c.PasswordDigest)

	c, err = s.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, uin, c.UIN)

	assert.ErrorIs(t, s.Create(ctx, uin, "x"+email, "secret"), UserExistsErr)
	assert.ErrorIs(t, s.Create(ctx, "x"+uin, email, "secret"), EmailExistsErr)

	_, err = s.FindByIdentity(ctx, "x"+uin)
	assert.ErrorIs(t, err, NotFoundErr)
}
