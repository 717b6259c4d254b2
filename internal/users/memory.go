package users

import (
	"context"
	"sync"
	"time"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemoryUserRepository is an in-memory UserRepository used in unit tests and
// when running without MongoDB.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{store: make(map[string]*models.User)}
}

func (r *MemoryUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if cur, ok := r.store[u.Sub]; ok {
		cur.Email = u.Email
		cur.Name = u.Name
		if u.Phone != "" {
			cur.Phone = u.Phone
		}
		cur.UpdatedAt = now
		cp := *cur
		return &cp, nil
	}
	nu := *u
	nu.CreatedAt = now
	nu.UpdatedAt = now
	r.store[u.Sub] = &nu
	cp := nu
	return &cp, nil
}

func (r *MemoryUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store[sub]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.OwnedSupporterIDs = append([]string(nil), u.OwnedSupporterIDs...)
	return &cp, nil
}

func (r *MemoryUserRepository) UpdateRoles(ctx context.Context, sub string, role, supporterRole string, ownedSupporterIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.store[sub]
	if !ok {
		return mongo.ErrNoDocuments
	}
	u.Role = role
	u.SupporterRole = supporterRole
	u.OwnedSupporterIDs = append([]string(nil), ownedSupporterIDs...)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryUserRepository) Search(ctx context.Context, query string) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.User{}
	for _, u := range r.store {
		if u.Sub == query || u.Email == query || u.Phone == query || u.OwnsSupporter(query) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}
