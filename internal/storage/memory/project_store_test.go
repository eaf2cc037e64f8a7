package memory

import (
	"context"
	"errors"
	"testing"

	"wallet-follow-engine/internal/domain"
	"wallet-follow-engine/internal/storage"
)

func TestFilterProjectStore_GetByIDsPreservesOrder(t *testing.T) {
	store := NewFilterProjectStore()
	ctx := context.Background()

	for _, p := range []*domain.FilterProject{
		{ProjectID: 1, Name: "first", Active: true},
		{ProjectID: 2, Name: "inactive", Active: false},
		{ProjectID: 3, Name: "third", Active: true},
	} {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	got, err := store.GetByIDs(ctx, []int64{3, 2, 99, 1})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 projects (inactive and missing skipped), got %d", len(got))
	}
	if got[0].ProjectID != 3 || got[1].ProjectID != 1 {
		t.Errorf("Expected order [3 1], got [%d %d]", got[0].ProjectID, got[1].ProjectID)
	}
}

func TestFilterProjectStore_CopiesRules(t *testing.T) {
	store := NewFilterProjectStore()
	ctx := context.Background()

	min := 0.5
	p := &domain.FilterProject{
		ProjectID: 1,
		Active:    true,
		Rules:     []*domain.FilterRule{{Name: "r1", Field: "price_change_pct", MinBound: &min, Active: true}},
	}
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got.Rules[0].Field = "mutated"

	again, _ := store.GetByID(ctx, 1)
	if again.Rules[0].Field != "price_change_pct" {
		t.Error("Stored rules were mutated through returned copy")
	}
}

func TestFilterProjectStore_NotFound(t *testing.T) {
	store := NewFilterProjectStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
