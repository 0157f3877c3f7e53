package store

import (
	"context"
	"sync"
)

// Memory is a Store keeping credentials in process memory. Contents are lost
// when the process exits.
type Memory struct {
	mu      sync.RWMutex
	byUIN   map[string]*Credential
	byEmail map[string]*Credential
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		byUIN:   map[string]*Credential{},
		byEmail: map[string]*Credential{},
	}
}

func (m *Memory) FindByIdentity(_ context.Context, uin string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byUIN[NormalizeIdentity(uin)]
	if !ok {
		return nil, NotFoundErr
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, NotFoundErr
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) Create(_ context.Context, uin, email, password string) error {
	if err := validateCreate(uin, email, password); err != nil {
		return err
	}
	key, mail := NormalizeIdentity(uin), NormalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUIN[key]; ok {
		return UserExistsErr
	}
	if _, ok := m.byEmail[mail]; ok {
		return EmailExistsErr
	}
	c := &Credential{UIN: uin, Email: email, PasswordDigest: DigestPassword(password)}
	m.byUIN[key] = c
	m.byEmail[mail] = c
	return nil
}

func (m *Memory) Close() error { return nil }
