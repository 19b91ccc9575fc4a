package ai

import "log"

// VoiceActivityDetector находит участки голоса в признаках записи
// Сегменты не пересекаются и упорядочены по Start; сегменты короче
// minDuration отбрасываются (не сливаются с соседями). Пустой результат
// означает "нечего диаризовать", не ошибку
type VoiceActivityDetector interface {
	DetectVoiceActivity(features *AudioFeatures, minDuration float64) ([]VoiceSegment, error)
}

// energyScale переводит порог VAD (0.0-1.0) в абсолютный RMS порог
// 0.5 соответствует RMS 0.01 - эмпирический порог речи против шума
const energyScale = 0.02

// EnergyVADConfig конфигурация энергетического VAD
type EnergyVADConfig struct {
	Threshold          float32 // порог вероятности речи (0.0 - 1.0)
	MinSilenceDuration float64 // минимальная пауза разделяющая сегменты (сек)
}

// DefaultEnergyVADConfig возвращает конфигурацию по умолчанию
func DefaultEnergyVADConfig() EnergyVADConfig {
	return EnergyVADConfig{
		Threshold:          0.5,
		MinSilenceDuration: 0.3,
	}
}

// EnergyVAD детектор голосовой активности на основе RMS энергии фреймов
// Полностью детерминированный: для одного AudioFeatures всегда один результат
type EnergyVAD struct {
	config EnergyVADConfig
}

// NewEnergyVAD создаёт новый детектор с указанным порогом
func NewEnergyVAD(threshold float32) *EnergyVAD {
	config := DefaultEnergyVADConfig()
	if threshold > 0 {
		config.Threshold = threshold
	}
	return &EnergyVAD{config: config}
}

// DetectVoiceActivity возвращает упорядоченные непересекающиеся сегменты голоса
func (v *EnergyVAD) DetectVoiceActivity(features *AudioFeatures, minDuration float64) ([]VoiceSegment, error) {
	numFrames := features.NumFrames()
	if numFrames == 0 {
		return nil, nil
	}

	rmsThreshold := v.config.Threshold * energyScale
	frameDur := features.FrameDuration
	minSilenceFrames := int(v.config.MinSilenceDuration / frameDur)
	if minSilenceFrames < 1 {
		minSilenceFrames = 1
	}

	var segments []VoiceSegment
	segmentStart := -1 // индекс первого фрейма текущего сегмента, -1 = вне сегмента
	silenceRun := 0
	lastVoiced := -1

	closeSegment := func(endFrame int) {
		start := float64(segmentStart) * frameDur
		end := float64(endFrame+1) * frameDur
		if end-start >= minDuration {
			segments = append(segments, VoiceSegment{Start: start, Duration: end - start})
		}
		segmentStart = -1
	}

	for frame := 0; frame < numFrames; frame++ {
		voiced := features.Energy[frame] >= rmsThreshold

		if voiced {
			if segmentStart == -1 {
				segmentStart = frame
			}
			lastVoiced = frame
			silenceRun = 0
		} else if segmentStart != -1 {
			silenceRun++
			if silenceRun >= minSilenceFrames {
				closeSegment(lastVoiced)
				silenceRun = 0
			}
		}
	}

	// Закрываем последний сегмент если запись кончилась речью
	if segmentStart != -1 {
		closeSegment(lastVoiced)
	}

	log.Printf("EnergyVAD: detected %d voice segments (min duration %.1fs)", len(segments), minDuration)
	return segments, nil
}
