package supporters

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/apperr"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Service wraps repository operations with directory business logic.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// Create registers a new listing. The slug is human-chosen and immutable;
// a collision is rejected, never overwritten.
func (s *Service) Create(ctx context.Context, sp *Supporter) error {
	sp.Slug = strings.ToLower(strings.TrimSpace(sp.Slug))
	if !slugPattern.MatchString(sp.Slug) {
		return apperr.Wrap(apperr.ErrInvalidArgument, "invalid slug %q", sp.Slug)
	}
	if strings.TrimSpace(sp.Name) == "" {
		return apperr.Wrap(apperr.ErrInvalidArgument, "name is required")
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return apperr.Wrap(apperr.ErrConflict, "slug %q already taken", sp.Slug)
		}
		return err
	}
	return nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Supporter, error) {
	sp, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "supporter %q", slug)
		}
		return nil, err
	}
	return sp, nil
}

func (s *Service) List(ctx context.Context) ([]*Supporter, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdateDetails(ctx context.Context, slug string, in *Supporter) error {
	if err := s.repo.UpdateDetails(ctx, slug, in); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "supporter %q", slug)
		}
		return err
	}
	return nil
}
