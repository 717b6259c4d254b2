package users

import (
	"context"
	"strings"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roles"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using verified OIDC claims.
// First authentication creates the record with the default role; existing
// records keep their role fields untouched (only the assignment service
// mutates those).
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	phone, _ := claims["phone_number"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:   sub,
		Email: email,
		Name:  name,
		Phone: phone,
		Role:  string(roles.RoleUser),
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// Search resolves a free-text query (sub, email, phone, or supporter slug)
// to matching user records. Read-only; an empty slice means no match.
func (s *Service) Search(ctx context.Context, query string) ([]*models.User, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []*models.User{}, nil
	}
	return s.repo.Search(ctx, q)
}
