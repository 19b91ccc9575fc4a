package ai

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"voxnote/audio"
)

// FeatureExtractor загружает аудио файл и вычисляет фреймовые признаки
// Не имеет побочных эффектов кроме временных буферов декодирования
type FeatureExtractor struct {
	config MelConfig
	mel    *MelProcessor
}

// NewFeatureExtractor создаёт новый экстрактор признаков
func NewFeatureExtractor(config MelConfig) *FeatureExtractor {
	return &FeatureExtractor{
		config: config,
		mel:    NewMelProcessor(config),
	}
}

// Extract загружает файл и возвращает AudioFeatures
// Ошибки: ErrFileNotFound, ErrFileTooSmall, ErrInvalidAudioFormat
func (e *FeatureExtractor) Extract(audioPath string) (*AudioFeatures, error) {
	info, err := os.Stat(audioPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, audioPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio file %s: %w", audioPath, err)
	}
	if info.Size() < minAudioFileBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooSmall, audioPath, info.Size())
	}

	startTime := time.Now()

	samples, err := audio.LoadMono(audioPath)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAudioFormat, audioPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAudioFormat, audioPath, err)
	}

	melSpec, mfcc, energy := e.mel.Compute(samples)

	features := &AudioFeatures{
		Samples:       samples,
		SampleRate:    e.config.SampleRate,
		Duration:      float64(len(samples)) / float64(e.config.SampleRate),
		FrameDuration: e.mel.FrameDuration(),
		Spectrogram:   melSpec,
		MFCC:          mfcc,
		Energy:        energy,
	}

	log.Printf("FeatureExtractor: %.1fs audio, %d frames in %.2fs",
		features.Duration, features.NumFrames(), time.Since(startTime).Seconds())

	return features, nil
}

// MelProcessor возвращает процессор признаков (для оценки характеристик голоса)
func (e *FeatureExtractor) MelProcessor() *MelProcessor {
	return e.mel
}
