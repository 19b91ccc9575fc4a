package voiceprint

import (
	"testing"
)

func profileWithEmbedding(id, name string, embedding []float32) Profile {
	return Profile{ID: id, Name: name, Embedding: embedding}
}

func TestFindBestMatch_NoProfiles(t *testing.T) {
	match := FindBestMatch([]float32{1, 0}, nil, 0.7)
	if match != nil {
		t.Error("Expected no match for empty profile list")
	}
}

func TestFindBestMatch_BelowThreshold(t *testing.T) {
	profiles := []Profile{
		profileWithEmbedding("a", "Иван", []float32{0, 1, 0}),
	}

	// Ортогональные векторы: сходство 0
	match := FindBestMatch([]float32{1, 0, 0}, profiles, 0.7)
	if match != nil {
		t.Errorf("Expected no match below threshold, got %s", match.Profile.Name)
	}
}

func TestFindBestMatch_StrictlyAboveThreshold(t *testing.T) {
	profiles := []Profile{
		profileWithEmbedding("a", "Иван", []float32{1, 0}),
	}

	// Сходство ровно на пороге не считается совпадением
	match := FindBestMatch([]float32{1, 0}, profiles, 1.0)
	if match != nil {
		t.Error("Similarity equal to threshold should not match")
	}
}

func TestFindBestMatch_PicksBest(t *testing.T) {
	profiles := []Profile{
		profileWithEmbedding("a", "Иван", []float32{1, 0.3, 0}),
		profileWithEmbedding("b", "Мария", []float32{1, 0, 0}),
		profileWithEmbedding("c", "Пётр", []float32{0, 0, 1}),
	}

	// Ближе всего к b, хотя a тоже выше порога
	match := FindBestMatch([]float32{1, 0.01, 0}, profiles, 0.7)
	if match == nil {
		t.Fatal("Expected a match")
	}
	if match.Profile.ID != "b" {
		t.Errorf("Expected best match b, got %s", match.Profile.ID)
	}
	if match.Similarity <= 0.9 {
		t.Errorf("Expected high similarity, got %f", match.Similarity)
	}
	if match.Confidence != "high" {
		t.Errorf("Expected high confidence, got %s", match.Confidence)
	}
}

func TestGetConfidence(t *testing.T) {
	cases := []struct {
		similarity float32
		expected   string
	}{
		{0.95, "high"},
		{0.85, "high"},
		{0.75, "medium"},
		{0.60, "low"},
		{0.30, "none"},
	}

	for _, c := range cases {
		if got := GetConfidence(c.similarity); got != c.expected {
			t.Errorf("GetConfidence(%f) = %s, expected %s", c.similarity, got, c.expected)
		}
	}
}

func TestMatcher_FindAllMatches(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Add(profileWithEmbedding("a", "Иван", []float32{1, 0})); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}
	if err := store.Add(profileWithEmbedding("b", "Мария", []float32{0.9, 0.1})); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}
	if err := store.Add(profileWithEmbedding("c", "Пётр", []float32{0, 1})); err != nil {
		t.Fatalf("Failed to add profile: %v", err)
	}

	matcher := NewMatcher(store)
	matches := matcher.FindAllMatches([]float32{1, 0}, 0.5)

	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	// Отсортированы по убыванию сходства
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("Matches should be sorted by similarity descending")
	}
	if matches[0].Profile.ID != "a" {
		t.Errorf("Best match should be a, got %s", matches[0].Profile.ID)
	}
}
