package users

import (
	"context"
	"testing"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
)

func TestUpsertFromClaims_FirstLoginDefaultsRole(t *testing.T) {
	svc := NewService(NewMemoryUserRepository())
	ctx := context.Background()

	u, err := svc.UpsertFromClaims(ctx, map[string]interface{}{
		"sub":   "sub-123",
		"email": "x@example.com",
		"name":  "X User",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.Sub != "sub-123" || u.Email != "x@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Role != "user" {
		t.Fatalf("first login must default role to user, got %q", u.Role)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set: %+v", u)
	}
}

func TestUpsertFromClaims_RepeatLoginKeepsAssignedRole(t *testing.T) {
	repo := NewMemoryUserRepository()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "s1", "email": "a@b.c", "name": "A"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// the assignment service promoted the user in the meantime
	if err := repo.UpdateRoles(ctx, "s1", "supporter", "owner", []string{"enoodle"}); err != nil {
		t.Fatalf("update roles: %v", err)
	}

	u, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "s1", "email": "new@b.c", "name": "A"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if u.Email != "new@b.c" {
		t.Fatalf("profile fields should refresh: %+v", u)
	}
	if u.Role != "supporter" || u.SupporterRole != "owner" || !u.OwnsSupporter("enoodle") {
		t.Fatalf("login must not overwrite assigned role: %+v", u)
	}
}

func TestUpsertFromClaims_MissingSub(t *testing.T) {
	svc := NewService(NewMemoryUserRepository())
	u, err := svc.UpsertFromClaims(context.Background(), map[string]interface{}{"email": "y@e.com"})
	if err != nil {
		t.Fatalf("unexpected error on missing sub: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil when sub missing, got: %v", u)
	}
}

func TestSearch(t *testing.T) {
	repo := NewMemoryUserRepository()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := repo.UpsertBySub(ctx, &models.User{Sub: "s1", Email: "alice@example.com", Name: "Alice", Phone: "555-0100", Role: "user"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.UpdateRoles(ctx, "s1", "supporter", "owner", []string{"enoodle"}); err != nil {
		t.Fatalf("seed roles: %v", err)
	}

	for _, q := range []string{"s1", "alice@example.com", "555-0100", "enoodle"} {
		got, err := svc.Search(ctx, q)
		if err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
		if len(got) != 1 || got[0].Sub != "s1" {
			t.Fatalf("search %q: expected s1, got %v", q, got)
		}
	}

	// no match is an empty result, not an error
	got, err := svc.Search(ctx, "nothing-here")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}

	// blank query short-circuits
	got, err = svc.Search(ctx, "   ")
	if err != nil || len(got) != 0 {
		t.Fatalf("blank query: got %v, %v", got, err)
	}
}
