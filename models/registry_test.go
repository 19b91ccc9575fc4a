package models

import "testing"

func TestGetModelByID(t *testing.T) {
	info := GetModelByID("wespeaker-voxceleb-resnet34")
	if info == nil {
		t.Fatal("Expected to find wespeaker model")
	}
	if info.Kind != ModelKindEmbedding {
		t.Errorf("Expected embedding kind, got %s", info.Kind)
	}

	if GetModelByID("no-such-model") != nil {
		t.Error("Expected nil for unknown model ID")
	}
}

func TestGetModelsByKind(t *testing.T) {
	embeddings := GetModelsByKind(ModelKindEmbedding)
	if len(embeddings) == 0 {
		t.Fatal("Expected at least one embedding model")
	}
	for _, m := range embeddings {
		if m.Kind != ModelKindEmbedding {
			t.Errorf("Model %s has kind %s", m.ID, m.Kind)
		}
	}

	if got := GetModelsByKind(ModelKind("unknown")); len(got) != 0 {
		t.Errorf("Expected no models for unknown kind, got %d", len(got))
	}
}

func TestGetRecommendedModels(t *testing.T) {
	recommended := GetRecommendedModels()
	if len(recommended) == 0 {
		t.Fatal("Expected at least one recommended model")
	}

	// Каждая рекомендация должна разрешаться по ID и иметь URL для скачивания
	for _, m := range recommended {
		if GetModelByID(m.ID) == nil {
			t.Errorf("Recommended model %s not resolvable by ID", m.ID)
		}
		if m.DownloadURL == "" {
			t.Errorf("Recommended model %s has no download URL", m.ID)
		}
	}
}
