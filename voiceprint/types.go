// Package voiceprint предоставляет долговременные голосовые профили спикеров
// для автоматического распознавания между записями
package voiceprint

import (
	"errors"
	"time"

	"voxnote/ai"
)

// Profile представляет сохранённый голосовой профиль спикера
type Profile struct {
	ID            string               `json:"id"`            // UUID
	Name          string               `json:"name"`          // Имя спикера (например, "Иван")
	Embedding     []float32            `json:"embedding"`     // Репрезентативный вектор (центроид)
	Statistics    *EmbeddingStatistics `json:"statistics"`    // Распределение эмбеддингов профиля
	SampleCount   int                  `json:"sampleCount"`   // Число эмбеддингов вошедших в профиль
	TotalDuration float64              `json:"totalDuration"` // Суммарная длительность аудио (сек)
	CreatedAt     time.Time            `json:"createdAt"`     // Время создания
	LastUpdated   time.Time            `json:"lastUpdated"`   // Время последнего обновления
	LastSeenAt    time.Time            `json:"lastSeenAt"`    // Время последнего распознавания
	SeenCount     int                  `json:"seenCount"`     // Количество распознаваний

	// Опционально: путь к аудио-сэмплу для воспроизведения
	SamplePath string `json:"samplePath,omitempty"`

	// Метаданные
	Source string `json:"source,omitempty"` // "mic" или "file" - откуда был записан
	Notes  string `json:"notes,omitempty"`  // Заметки пользователя
}

// EmbeddingStatistics описывает распределение эмбеддингов профиля
// Все векторы имеют размерность эмбеддинга
type EmbeddingStatistics struct {
	Mean   []float32 `json:"mean"`
	StdDev []float32 `json:"stdDev"`
	Min    []float32 `json:"min"`
	Max    []float32 `json:"max"`
}

// profileFile структура для хранения в JSON файле
type profileFile struct {
	Version  int       `json:"version"`  // Версия формата (для миграций)
	Profiles []Profile `json:"profiles"` // Список профилей
}

// MatchResult результат поиска совпадения
type MatchResult struct {
	Profile    *Profile
	Similarity float32 // Косинусное сходство (0-1)
	Confidence string  // "high", "medium", "low", "none"
}

// IdentifiedSpeaker спикер из свежей диаризации, сопоставленный с профилем
type IdentifiedSpeaker struct {
	SpeakerID  string              `json:"speakerId"`  // ID кластера (speaker_0, ...)
	Profile    Profile             `json:"profile"`    // Совпавший профиль
	Confidence float32             `json:"confidence"` // Косинусное сходство с профилем
	Segments   []ai.SpeakerSegment `json:"segments"`   // Сегменты этого спикера
}

// IdentificationResult итог идентификации спикеров записи
type IdentificationResult struct {
	AudioPath            string                `json:"audioPath"`
	Diarization          *ai.DiarizationResult `json:"diarization"`
	IdentifiedSpeakers   []IdentifiedSpeaker   `json:"identifiedSpeakers"`
	UnidentifiedSpeakers []ai.Speaker          `json:"unidentifiedSpeakers"`
}

// Пороги для matching (косинусное сходство)
const (
	ThresholdHigh   float32 = 0.85 // Высокая уверенность - автоматическое назначение
	ThresholdMedium float32 = 0.70 // Средняя - предложить пользователю
	ThresholdLow    float32 = 0.50 // Низкая - возможное совпадение
	ThresholdMin    float32 = 0.50 // Минимальный порог для любого matching
)

// GetConfidence возвращает уровень уверенности для similarity
func GetConfidence(similarity float32) string {
	switch {
	case similarity >= ThresholdHigh:
		return "high"
	case similarity >= ThresholdMedium:
		return "medium"
	case similarity >= ThresholdLow:
		return "low"
	default:
		return "none"
	}
}

// ErrInsufficientSamples создание или обновление профиля без аудио-сэмплов
var ErrInsufficientSamples = errors.New("insufficient audio samples")

// ErrProfileNotFound профиль с указанным ID отсутствует в хранилище
var ErrProfileNotFound = errors.New("profile not found")

// CurrentVersion текущая версия формата хранения
const CurrentVersion = 1
