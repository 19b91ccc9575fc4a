package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"voxnote/ai"
)

// EmbeddingSource извлекает голосовые эмбеддинги из аудиофайла
// Реализуется ai.Diarizer
type EmbeddingSource interface {
	VoiceEmbeddings(ctx context.Context, audioPath string) ([]ai.SpeakerEmbedding, float64, error)
}

// Manager строит и инкрементально обновляет голосовые профили
// из аудио-сэмплов одного спикера
type Manager struct {
	source EmbeddingSource
}

// NewManager создаёт менеджер профилей
func NewManager(source EmbeddingSource) *Manager {
	return &Manager{source: source}
}

// CreateProfile создаёт профиль из одного или нескольких аудио-сэмплов
// Репрезентативный эмбеддинг - центроид всех эмбеддингов всех сэмплов
// (не среднее по-файловых центроидов); статистика считается по тому же набору
func (m *Manager) CreateProfile(ctx context.Context, name string, samplePaths []string) (*Profile, error) {
	if len(samplePaths) == 0 {
		return nil, ErrInsufficientSamples
	}

	embeddings, totalDuration, err := m.collectEmbeddings(ctx, samplePaths)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	profile := &Profile{
		ID:            uuid.New().String(),
		Name:          name,
		Embedding:     ai.Centroid(embeddings),
		Statistics:    computeStatistics(embeddings),
		SampleCount:   len(embeddings),
		TotalDuration: totalDuration,
		CreatedAt:     now,
		LastUpdated:   now,
	}

	log.Printf("[VoicePrint] Profile created: %s (%d embeddings, %.1f sec)",
		name, profile.SampleCount, profile.TotalDuration)

	return profile, nil
}

// UpdateProfile дообучает профиль на новых сэмплах
// Новый центроид - взвешенная по количеству комбинация старого и нового:
// new[i] = (old[i]*oldCount + centroid[i]*newCount) / (oldCount+newCount)
// ID, имя и время создания сохраняются; возвращается новое значение
func (m *Manager) UpdateProfile(ctx context.Context, profile Profile, samplePaths []string) (*Profile, error) {
	if len(samplePaths) == 0 {
		return nil, ErrInsufficientSamples
	}

	embeddings, addedDuration, err := m.collectEmbeddings(ctx, samplePaths)
	if err != nil {
		return nil, err
	}

	oldCount := profile.SampleCount
	newCount := len(embeddings)
	total := oldCount + newCount

	newCentroid := ai.Centroid(embeddings)
	combined := make([]float32, len(profile.Embedding))
	for i := range combined {
		combined[i] = (profile.Embedding[i]*float32(oldCount) + newCentroid[i]*float32(newCount)) / float32(total)
	}

	updated := profile
	updated.Embedding = combined
	updated.Statistics = mergeStatistics(profile.Statistics, oldCount, computeStatistics(embeddings), newCount)
	updated.SampleCount = total
	updated.TotalDuration = profile.TotalDuration + addedDuration
	updated.LastUpdated = time.Now()

	log.Printf("[VoicePrint] Profile updated: %s (+%d embeddings, total %d)",
		profile.Name, newCount, total)

	return &updated, nil
}

// collectEmbeddings извлекает эмбеддинги всех сэмплов
// Возвращает ai.ErrNoVoiceDetected если ни в одном сэмпле нет речи
func (m *Manager) collectEmbeddings(ctx context.Context, samplePaths []string) ([]ai.SpeakerEmbedding, float64, error) {
	var all []ai.SpeakerEmbedding
	var totalDuration float64

	for _, path := range samplePaths {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		embeddings, duration, err := m.source.VoiceEmbeddings(ctx, path)
		if err != nil {
			// Тишина в отдельном сэмпле не фатальна; если речи нет нигде,
			// итоговая проверка вернёт ErrNoVoiceDetected
			if errors.Is(err, ai.ErrNoVoiceDetected) {
				log.Printf("[VoicePrint] No voice in sample %s, skipping", path)
				continue
			}
			return nil, 0, fmt.Errorf("failed to process sample %s: %w", path, err)
		}

		all = append(all, embeddings...)
		totalDuration += duration
	}

	if len(all) == 0 {
		return nil, 0, ai.ErrNoVoiceDetected
	}

	return all, totalDuration, nil
}

// computeStatistics считает по-компонентную статистику набора эмбеддингов
func computeStatistics(embeddings []ai.SpeakerEmbedding) *EmbeddingStatistics {
	if len(embeddings) == 0 {
		return nil
	}

	dim := len(embeddings[0].Vector)
	n := float64(len(embeddings))

	stats := &EmbeddingStatistics{
		Mean:   make([]float32, dim),
		StdDev: make([]float32, dim),
		Min:    make([]float32, dim),
		Max:    make([]float32, dim),
	}

	copy(stats.Min, embeddings[0].Vector)
	copy(stats.Max, embeddings[0].Vector)

	sums := make([]float64, dim)
	sumSquares := make([]float64, dim)

	for _, emb := range embeddings {
		for i, v := range emb.Vector {
			sums[i] += float64(v)
			sumSquares[i] += float64(v) * float64(v)
			if v < stats.Min[i] {
				stats.Min[i] = v
			}
			if v > stats.Max[i] {
				stats.Max[i] = v
			}
		}
	}

	for i := 0; i < dim; i++ {
		mean := sums[i] / n
		variance := sumSquares[i]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		stats.Mean[i] = float32(mean)
		stats.StdDev[i] = float32(math.Sqrt(variance))
	}

	return stats
}

// mergeStatistics объединяет статистику двух наборов эмбеддингов
// Точная формула через E[x²] = sd² + mean², эквивалентна пересчёту
// по полному объединённому набору
func mergeStatistics(old *EmbeddingStatistics, oldCount int, add *EmbeddingStatistics, addCount int) *EmbeddingStatistics {
	if old == nil {
		return add
	}
	if add == nil {
		return old
	}

	dim := len(old.Mean)
	n1 := float64(oldCount)
	n2 := float64(addCount)
	n := n1 + n2

	merged := &EmbeddingStatistics{
		Mean:   make([]float32, dim),
		StdDev: make([]float32, dim),
		Min:    make([]float32, dim),
		Max:    make([]float32, dim),
	}

	for i := 0; i < dim; i++ {
		m1 := float64(old.Mean[i])
		m2 := float64(add.Mean[i])
		mean := (m1*n1 + m2*n2) / n

		e1 := float64(old.StdDev[i])*float64(old.StdDev[i]) + m1*m1
		e2 := float64(add.StdDev[i])*float64(add.StdDev[i]) + m2*m2
		variance := (e1*n1+e2*n2)/n - mean*mean
		if variance < 0 {
			variance = 0
		}

		merged.Mean[i] = float32(mean)
		merged.StdDev[i] = float32(math.Sqrt(variance))

		merged.Min[i] = old.Min[i]
		if add.Min[i] < merged.Min[i] {
			merged.Min[i] = add.Min[i]
		}
		merged.Max[i] = old.Max[i]
		if add.Max[i] > merged.Max[i] {
			merged.Max[i] = add.Max[i]
		}
	}

	return merged
}
