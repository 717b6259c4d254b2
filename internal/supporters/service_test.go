package supporters

import (
	"context"
	"errors"
	"testing"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/apperr"
)

func TestCreateAndGet(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	sp := &Supporter{Slug: "Enoodle", Name: "E-Noodle House", Address: "12 Main St"}
	if err := svc.Create(ctx, sp); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if sp.Slug != "enoodle" {
		t.Fatalf("slug should be normalized to lowercase, got %q", sp.Slug)
	}

	got, err := svc.GetBySlug(ctx, "enoodle")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "E-Noodle House" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected supporter: %+v", got)
	}
}

func TestCreate_SlugCollisionRejected(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if err := svc.Create(ctx, &Supporter{Slug: "enoodle", Name: "First"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	err := svc.Create(ctx, &Supporter{Slug: "enoodle", Name: "Second"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// the original is untouched
	got, _ := svc.GetBySlug(ctx, "enoodle")
	if got.Name != "First" {
		t.Fatalf("collision overwrote the original: %+v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	for _, sp := range []*Supporter{
		{Slug: "", Name: "X"},
		{Slug: "a", Name: "X"},          // too short
		{Slug: "-bad-", Name: "X"},      // leading/trailing dash
		{Slug: "has space", Name: "X"},  // invalid characters
		{Slug: "UPPER!", Name: "X"},     // invalid characters
		{Slug: "okay-slug", Name: "  "}, // blank name
	} {
		if err := svc.Create(ctx, sp); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("supporter %+v: expected invalid-argument, got %v", sp, err)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.GetBySlug(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestList_SortedByName(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	for _, s := range []*Supporter{
		{Slug: "zzz-wok", Name: "ZZZ Wok"},
		{Slug: "golden-dragon", Name: "Golden Dragon"},
		{Slug: "enoodle", Name: "E-Noodle"},
	} {
		if err := svc.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.Slug, err)
		}
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 supporters, got %d", len(list))
	}
	if list[0].Slug != "enoodle" || list[2].Slug != "zzz-wok" {
		t.Fatalf("unexpected order: %s, %s, %s", list[0].Slug, list[1].Slug, list[2].Slug)
	}
}
