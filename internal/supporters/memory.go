package supporters

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used in unit tests and when
// running without MongoDB.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*Supporter
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*Supporter)}
}

func (r *MemoryRepository) Create(ctx context.Context, s *Supporter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[s.Slug]; ok {
		return ErrSlugTaken
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	r.store[s.Slug] = &cp
	return nil
}

func (r *MemoryRepository) GetBySlug(ctx context.Context, slug string) (*Supporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.store[slug]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*Supporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Supporter, 0, len(r.store))
	for _, s := range r.store {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) SetOwner(ctx context.Context, slug, ownerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[slug]
	if !ok {
		return ErrNotFound
	}
	s.OwnerUserID = ownerUserID
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) UpdateDetails(ctx context.Context, slug string, in *Supporter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[slug]
	if !ok {
		return ErrNotFound
	}
	s.Name = in.Name
	s.Description = in.Description
	s.Address = in.Address
	s.Phone = in.Phone
	s.Hours = in.Hours
	if in.ImageKey != "" {
		s.ImageKey = in.ImageKey
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}
