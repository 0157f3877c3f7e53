package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	queryByIdentity = `SELECT display_uin, email, password_digest FROM users WHERE uin = $1 LIMIT 1`
	queryByEmail    = `SELECT display_uin, email, password_digest FROM users WHERE email = $1 LIMIT 1`
	insertUser      = `INSERT INTO users (uin, display_uin, email, password_digest) VALUES ($1, $2, $3, $4)`

	uniqueViolation    = pq.ErrorCode("23505")
	emailConstraint    = "users_email_key"
	identityConstraint = "users_pkey"
)

// Postgres is a Store backed by a PostgreSQL database.
type Postgres struct {
	log *zap.Logger
	db  *sql.DB
}

// OpenPostgres connects to the database identified by dsn, applies pending
// migrations and returns a ready Store.
func OpenPostgres(ctx context.Context, log *zap.Logger, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err = Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgres(log, db), nil
}

// NewPostgres wraps an already migrated database handle.
func NewPostgres(log *zap.Logger, db *sql.DB) *Postgres {
	return &Postgres{
		log: log.With(zap.String("facility", "store"), zap.String("driver", "postgres")),
		db:  db,
	}
}

func (p *Postgres) FindByIdentity(ctx context.Context, uin string) (*Credential, error) {
	return p.findOne(ctx, queryByIdentity, NormalizeIdentity(uin))
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	return p.findOne(ctx, queryByEmail, NormalizeEmail(email))
}

func (p *Postgres) findOne(ctx context.Context, query, key string) (*Credential, error) {
	var c Credential
	var digest []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&c.UIN, &c.Email, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundErr
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	if len(digest) != DigestSize {
		p.log.Error("Stored digest has unexpected size", zap.String("uin", c.UIN), zap.Int("size", len(digest)))
		return nil, fmt.Errorf("credential for %q has a %d-byte digest", c.UIN, len(digest))
	}
	copy(c.PasswordDigest[:], digest)
	return &c, nil
}

func (p *Postgres) Create(ctx context.Context, uin, email, password string) error {
	if err := validateCreate(uin, email, password); err != nil {
		return err
	}
	digest := DigestPassword(password)
	_, err := p.db.ExecContext(ctx, insertUser, NormalizeIdentity(uin), uin, NormalizeEmail(email), digest[:])
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case emailConstraint:
			return EmailExistsErr
		case identityConstraint:
			return UserExistsErr
		}
	}
	return fmt.Errorf("inserting credential: %w", err)
}

func (p *Postgres) Close() error { return p.db.Close() }
