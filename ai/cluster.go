package ai

import (
	"fmt"
	"log"
	"math"
	"sort"
)

// ClustererConfig конфигурация кластеризации эмбеддингов
type ClustererConfig struct {
	// SimilarityThreshold минимальное косинусное сходство для объединения
	// двух кластеров в авто-режиме (0.0-1.0)
	SimilarityThreshold float32

	// MaxClusters верхняя граница количества спикеров
	MaxClusters int
}

// DefaultClustererConfig возвращает конфигурацию по умолчанию
func DefaultClustererConfig() ClustererConfig {
	return ClustererConfig{
		SimilarityThreshold: 0.7,
		MaxClusters:         10,
	}
}

// Clusterer группирует эмбеддинги по спикерам иерархической агломеративной
// кластеризацией: каждый эмбеддинг начинает отдельным кластером, затем пары
// с максимальным косинусным сходством центроидов сливаются.
//
// В авто-режиме слияние продолжается пока лучшая пара не опустится ниже
// порога; при заданном expectedClusters - до min(expectedClusters, n).
// При неоднозначности предпочитается меньшее число кластеров (слияние),
// чтобы не дробить одного спикера на нескольких
type Clusterer struct {
	config ClustererConfig
}

// NewClusterer создаёт новый кластеризатор
func NewClusterer(config ClustererConfig) *Clusterer {
	if config.MaxClusters < 1 {
		config.MaxClusters = 1
	}
	return &Clusterer{config: config}
}

// Cluster группирует эмбеддинги в кластеры спикеров
// expectedClusters = 0 означает автоматическое определение количества
// Кластеры упорядочены по времени первого появления, ID: speaker_0, speaker_1...
func (c *Clusterer) Cluster(embeddings []SpeakerEmbedding, expectedClusters int) ([]SpeakerCluster, error) {
	n := len(embeddings)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty embedding set", ErrClusteringFailed)
	}

	dim := len(embeddings[0].Vector)
	for i := 1; i < n; i++ {
		if len(embeddings[i].Vector) != dim {
			return nil, fmt.Errorf("%w: dimension mismatch (%d vs %d)",
				ErrClusteringFailed, len(embeddings[i].Vector), dim)
		}
	}

	// Каждый эмбеддинг начинает отдельным кластером
	clusters := make([]SpeakerCluster, n)
	for i, emb := range embeddings {
		centroid := make([]float32, dim)
		copy(centroid, emb.Vector)
		clusters[i] = SpeakerCluster{
			Embeddings: []SpeakerEmbedding{emb},
			Centroid:   SpeakerEmbedding{Vector: centroid, Timestamp: emb.Timestamp},
		}
	}

	target := 0
	if expectedClusters > 0 {
		// Не фабрикуем пустых спикеров: целевое число ограничено
		// количеством эмбеддингов и MaxClusters
		target = expectedClusters
		if target > n {
			target = n
		}
		if target > c.config.MaxClusters {
			target = c.config.MaxClusters
		}
	}

	for len(clusters) > 1 {
		i, j, best := bestPair(clusters)

		if target > 0 {
			if len(clusters) <= target {
				break
			}
			// Принудительное слияние до целевого количества
		} else {
			if best < c.config.SimilarityThreshold && len(clusters) <= c.config.MaxClusters {
				break
			}
		}

		clusters[i] = mergeClusters(clusters[i], clusters[j])
		clusters = append(clusters[:j], clusters[j+1:]...)
	}

	// Упорядочиваем по времени первого появления и присваиваем ID
	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a].Centroid.Timestamp < clusters[b].Centroid.Timestamp
	})
	for i := range clusters {
		clusters[i].ID = fmt.Sprintf("speaker_%d", i)
		clusters[i].Confidence = clusterConfidence(clusters[i])
	}

	log.Printf("Clusterer: %d embeddings -> %d clusters (expected=%d, threshold=%.2f)",
		n, len(clusters), expectedClusters, c.config.SimilarityThreshold)

	return clusters, nil
}

// bestPair находит пару кластеров с максимальным сходством центроидов
// При равенстве выбирается пара с меньшими индексами (детерминированность)
func bestPair(clusters []SpeakerCluster) (int, int, float32) {
	bestI, bestJ := 0, 1
	best := float32(-2)

	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			sim := CosineSimilarity(clusters[i].Centroid.Vector, clusters[j].Centroid.Vector)
			if sim > best {
				best = sim
				bestI, bestJ = i, j
			}
		}
	}

	return bestI, bestJ, best
}

// mergeClusters объединяет два кластера и пересчитывает центроид
// как поэлементное среднее векторов всех участников
func mergeClusters(a, b SpeakerCluster) SpeakerCluster {
	members := make([]SpeakerEmbedding, 0, len(a.Embeddings)+len(b.Embeddings))
	members = append(members, a.Embeddings...)
	members = append(members, b.Embeddings...)

	merged := SpeakerCluster{
		Embeddings: members,
		Centroid:   SpeakerEmbedding{Vector: Centroid(members)},
	}

	earliest := members[0].Timestamp
	for _, m := range members[1:] {
		if m.Timestamp < earliest {
			earliest = m.Timestamp
		}
	}
	merged.Centroid.Timestamp = earliest

	return merged
}

// Centroid возвращает поэлементное среднее векторов
func Centroid(embeddings []SpeakerEmbedding) []float32 {
	if len(embeddings) == 0 {
		return nil
	}

	dim := len(embeddings[0].Vector)
	sum := make([]float64, dim)
	for _, emb := range embeddings {
		for i, v := range emb.Vector {
			sum[i] += float64(v)
		}
	}

	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(len(embeddings)))
	}
	return out
}

// clusterConfidence возвращает среднее сходство участников с центроидом
// Для кластера из одного эмбеддинга - 1.0
func clusterConfidence(c SpeakerCluster) float32 {
	if len(c.Embeddings) <= 1 {
		return 1.0
	}

	var sum float32
	for _, emb := range c.Embeddings {
		sum += CosineSimilarity(emb.Vector, c.Centroid.Vector)
	}
	conf := sum / float32(len(c.Embeddings))

	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	return conf
}

// CosineSimilarity вычисляет косинусное сходство двух векторов
// Возвращает значение от -1 до 1, где 1 = идентичные направления
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim > 1.0 {
		sim = 1.0
	} else if sim < -1.0 {
		sim = -1.0
	}
	return float32(sim)
}
