package user

import (
	"context"
	"testing"
)

func TestDeleteUnverifiedNilPool(t *testing.T) {
	t.Parallel()
	repo := &Repository{}
	_, err := repo.DeleteUnverified(context.Background(), 0, 0)
	if err == nil {
		t.Fatal("expected error for nil pool, got nil")
	}
}

func TestPurgeDeletedNilPool(t *testing.T) {
	t.Parallel()
	repo := &Repository{}
	_, err := repo.PurgeDeleted(context.Background())
	if err == nil {
		t.Fatal("expected error for nil pool, got nil")
	}
}
