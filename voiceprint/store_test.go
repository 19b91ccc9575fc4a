package voiceprint

import (
	"errors"
	"testing"
	"time"
)

func testProfile(id, name string) Profile {
	now := time.Now()
	return Profile{
		ID:          id,
		Name:        name,
		Embedding:   []float32{1, 0, 0},
		SampleCount: 2,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func TestStore_AddAndGet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Add(testProfile("id-1", "Иван")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profile, err := store.Get("id-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if profile.Name != "Иван" {
		t.Errorf("Expected name Иван, got %s", profile.Name)
	}
	if store.Count() != 1 {
		t.Errorf("Expected count 1, got %d", store.Count())
	}
}

func TestStore_AddDuplicate(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Add(testProfile("id-1", "Иван")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(testProfile("id-1", "Другой")); err == nil {
		t.Error("Expected error for duplicate ID")
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	_, err = store.Get("missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Add(testProfile("id-1", "Иван")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Новый экземпляр читает тот же файл
	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if reopened.Count() != 1 {
		t.Fatalf("Expected 1 profile after reopen, got %d", reopened.Count())
	}

	profile, err := reopened.Get("id-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if profile.Name != "Иван" {
		t.Errorf("Expected name Иван, got %s", profile.Name)
	}
	if len(profile.Embedding) != 3 {
		t.Errorf("Embedding should survive roundtrip, got %d values", len(profile.Embedding))
	}
}

func TestStore_UpdateName(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Add(testProfile("id-1", "Иван")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.UpdateName("id-1", "Иван Петров"); err != nil {
		t.Fatalf("UpdateName failed: %v", err)
	}

	profile, _ := store.Get("id-1")
	if profile.Name != "Иван Петров" {
		t.Errorf("Expected updated name, got %s", profile.Name)
	}
}

func TestStore_Delete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Add(testProfile("id-1", "Иван")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.Delete("id-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Expected empty store after delete, got %d", store.Count())
	}

	if err := store.Delete("id-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound for second delete, got %v", err)
	}
}

func TestStore_MarkSeen(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Add(testProfile("id-1", "Иван")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.MarkSeen("id-1"); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}

	profile, _ := store.Get("id-1")
	if profile.SeenCount != 1 {
		t.Errorf("Expected SeenCount 1, got %d", profile.SeenCount)
	}
	if profile.LastSeenAt.IsZero() {
		t.Error("LastSeenAt should be set")
	}
}
