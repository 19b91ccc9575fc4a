package ai

import (
	"errors"
	"math"
	"testing"
)

// unitVector возвращает базисный вектор размерности dim
func unitVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

// noisyVector возвращает базисный вектор с малым шумом по другой оси
func noisyVector(dim, axis int, noise float32) []float32 {
	v := unitVector(dim, axis)
	v[(axis+1)%dim] = noise
	return NormalizeVector(v)
}

func TestClusterer_EmptyInput(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	_, err := clusterer.Cluster(nil, 0)
	if !errors.Is(err, ErrClusteringFailed) {
		t.Errorf("Expected ErrClusteringFailed, got %v", err)
	}
}

func TestClusterer_DimensionMismatch(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	embeddings := []SpeakerEmbedding{
		{Vector: make([]float32, 512), Timestamp: 0},
		{Vector: make([]float32, 256), Timestamp: 1},
	}

	_, err := clusterer.Cluster(embeddings, 0)
	if !errors.Is(err, ErrClusteringFailed) {
		t.Errorf("Expected ErrClusteringFailed for dimension mismatch, got %v", err)
	}
}

func TestClusterer_SingleEmbedding(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	embeddings := []SpeakerEmbedding{
		{Vector: unitVector(8, 0), Timestamp: 0.5},
	}

	clusters, err := clusterer.Cluster(embeddings, 0)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}

	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].ID != "speaker_0" {
		t.Errorf("Expected ID speaker_0, got %s", clusters[0].ID)
	}
	if clusters[0].Confidence != 1.0 {
		t.Errorf("Singleton cluster should have confidence 1.0, got %f", clusters[0].Confidence)
	}
}

func TestClusterer_TwoSpeakers(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	// Два ортогональных направления - два спикера
	embeddings := []SpeakerEmbedding{
		{Vector: noisyVector(8, 0, 0.05), Timestamp: 0},
		{Vector: noisyVector(8, 0, 0.08), Timestamp: 2},
		{Vector: noisyVector(8, 2, 0.05), Timestamp: 4},
		{Vector: noisyVector(8, 2, 0.07), Timestamp: 6},
	}

	clusters, err := clusterer.Cluster(embeddings, 0)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}

	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}

	// Кластеры упорядочены по времени первого появления
	if clusters[0].Centroid.Timestamp > clusters[1].Centroid.Timestamp {
		t.Error("Clusters should be ordered by first appearance")
	}
	if len(clusters[0].Embeddings) != 2 || len(clusters[1].Embeddings) != 2 {
		t.Errorf("Expected 2 embeddings per cluster, got %d and %d",
			len(clusters[0].Embeddings), len(clusters[1].Embeddings))
	}
}

func TestClusterer_ExpectedCount(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	// Три разных направления, но запрошено 2 кластера
	embeddings := []SpeakerEmbedding{
		{Vector: unitVector(8, 0), Timestamp: 0},
		{Vector: noisyVector(8, 0, 0.1), Timestamp: 1},
		{Vector: unitVector(8, 3), Timestamp: 2},
		{Vector: unitVector(8, 6), Timestamp: 3},
	}

	clusters, err := clusterer.Cluster(embeddings, 2)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}

	if len(clusters) != 2 {
		t.Errorf("Expected exactly 2 clusters, got %d", len(clusters))
	}
}

func TestClusterer_ExpectedExceedsEmbeddings(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	embeddings := []SpeakerEmbedding{
		{Vector: unitVector(8, 0), Timestamp: 0},
		{Vector: unitVector(8, 3), Timestamp: 1},
	}

	// Нельзя получить больше кластеров чем эмбеддингов
	clusters, err := clusterer.Cluster(embeddings, 5)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Errorf("Expected 2 clusters (capped by embedding count), got %d", len(clusters))
	}
}

func TestClusterer_MaxClustersBound(t *testing.T) {
	config := DefaultClustererConfig()
	config.MaxClusters = 3
	clusterer := NewClusterer(config)

	// 6 взаимно ортогональных эмбеддингов - без ограничения было бы 6 кластеров
	var embeddings []SpeakerEmbedding
	for i := 0; i < 6; i++ {
		embeddings = append(embeddings, SpeakerEmbedding{
			Vector:    unitVector(8, i),
			Timestamp: float64(i),
		})
	}

	clusters, err := clusterer.Cluster(embeddings, 0)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(clusters) > 3 {
		t.Errorf("Cluster count %d exceeds MaxClusters 3", len(clusters))
	}
}

func TestClusterer_CentroidIsMean(t *testing.T) {
	clusterer := NewClusterer(DefaultClustererConfig())

	a := []float32{1, 0, 0, 0}
	b := []float32{0.8, 0.6, 0, 0}

	embeddings := []SpeakerEmbedding{
		{Vector: a, Timestamp: 0},
		{Vector: b, Timestamp: 1},
	}

	clusters, err := clusterer.Cluster(embeddings, 1)
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(clusters))
	}

	centroid := clusters[0].Centroid.Vector
	for i := range centroid {
		expected := (a[i] + b[i]) / 2
		if math.Abs(float64(centroid[i]-expected)) > 1e-6 {
			t.Errorf("Centroid[%d] = %f, expected %f", i, centroid[i], expected)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if sim := CosineSimilarity(a, a); math.Abs(float64(sim)-1.0) > 1e-6 {
		t.Errorf("Identical vectors should have similarity 1.0, got %f", sim)
	}
	if sim := CosineSimilarity(a, b); math.Abs(float64(sim)) > 1e-6 {
		t.Errorf("Orthogonal vectors should have similarity 0.0, got %f", sim)
	}
	if sim := CosineSimilarity(a, []float32{1, 0}); sim != 0 {
		t.Errorf("Mismatched dimensions should return 0, got %f", sim)
	}
}
