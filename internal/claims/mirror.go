package claims

import (
	"context"
	"sync"
	"time"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roles"
)

// Mirrored is one user's claims snapshot as last written by the assignment
// service. It is a cache, never authoritative: the role store wins.
type Mirrored struct {
	Sub               string    `json:"sub"`
	Role              string    `json:"role"`
	SupporterRole     string    `json:"supporterRole,omitempty"`
	OwnedSupporterIDs []string  `json:"ownedSupporterIds,omitempty"`
	MirroredAt        time.Time `json:"mirroredAt"`
}

// Claims converts the snapshot back into guard-evaluable claims.
func (m *Mirrored) Claims() roles.Claims {
	return roles.Claims{
		Sub:               m.Sub,
		Role:              roles.Role(m.Role),
		SupporterRole:     roles.SupporterRole(m.SupporterRole),
		OwnedSupporterIDs: m.OwnedSupporterIDs,
	}
}

// Mirror stores per-user claims snapshots so request paths can authorize
// without a role-store read. Set overwrites; Invalidate drops the snapshot
// so the next token refresh re-reads the store.
type Mirror interface {
	Set(ctx context.Context, c roles.Claims) error
	Get(ctx context.Context, sub string) (*Mirrored, error)
	Invalidate(ctx context.Context, sub string) error
}

// MemoryMirror is the in-process Mirror used in tests and when Redis is not
// configured.
type MemoryMirror struct {
	mu    sync.RWMutex
	store map[string]*Mirrored
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{store: make(map[string]*Mirrored)}
}

func (m *MemoryMirror) Set(ctx context.Context, c roles.Claims) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[c.Sub] = &Mirrored{
		Sub:               c.Sub,
		Role:              string(c.Role),
		SupporterRole:     string(c.SupporterRole),
		OwnedSupporterIDs: append([]string(nil), c.OwnedSupporterIDs...),
		MirroredAt:        time.Now().UTC(),
	}
	return nil
}

func (m *MemoryMirror) Get(ctx context.Context, sub string) (*Mirrored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[sub]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryMirror) Invalidate(ctx context.Context, sub string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, sub)
	return nil
}
