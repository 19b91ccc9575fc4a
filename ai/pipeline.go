package ai

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DiarizerConfig конфигурация пайплайна диаризации
type DiarizerConfig struct {
	ExpectedSpeakers    int     // 0 = автоматическое определение
	MinSpeechDuration   float64 // минимальная длительность сегмента речи (сек)
	MaxSpeakers         int     // верхняя граница числа спикеров
	VADThreshold        float32 // порог детектора голосовой активности
	SimilarityThreshold float32 // порог косинусной близости для объединения кластеров
	EmbeddingWorkers    int     // параллелизм извлечения эмбеддингов
}

// DefaultDiarizerConfig возвращает конфигурацию по умолчанию
func DefaultDiarizerConfig() DiarizerConfig {
	return DiarizerConfig{
		ExpectedSpeakers:    0,
		MinSpeechDuration:   1.0,
		MaxSpeakers:         10,
		VADThreshold:        0.5,
		SimilarityThreshold: 0.7,
		EmbeddingWorkers:    4,
	}
}

// Diarizer полный пайплайн диаризации:
// извлечение признаков -> VAD -> эмбеддинги -> кластеризация -> таймлайн
type Diarizer struct {
	config    DiarizerConfig
	features  *FeatureExtractor
	vad       VoiceActivityDetector
	encoder   EmbeddingExtractor
	clusterer *Clusterer

	mu sync.RWMutex
}

// NewDiarizer создает пайплайн с энергетическим VAD по умолчанию
// Детектор можно заменить через SetVoiceActivityDetector
func NewDiarizer(encoder EmbeddingExtractor, config DiarizerConfig) (*Diarizer, error) {
	if encoder == nil {
		return nil, fmt.Errorf("embedding extractor is required")
	}
	if config.MaxSpeakers < 1 {
		return nil, fmt.Errorf("max speakers must be at least 1, got %d", config.MaxSpeakers)
	}

	clustererConfig := DefaultClustererConfig()
	clustererConfig.SimilarityThreshold = config.SimilarityThreshold
	clustererConfig.MaxClusters = config.MaxSpeakers

	return &Diarizer{
		config:    config,
		features:  NewFeatureExtractor(DefaultMelConfig()),
		vad:       NewEnergyVAD(config.VADThreshold),
		encoder:   encoder,
		clusterer: NewClusterer(clustererConfig),
	}, nil
}

// SetVoiceActivityDetector заменяет детектор голосовой активности
// (например на Silero вместо энергетического)
func (d *Diarizer) SetVoiceActivityDetector(vad VoiceActivityDetector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if vad != nil {
		d.vad = vad
	}
}

// Diarize выполняет полный пайплайн для аудиофайла
func (d *Diarizer) Diarize(ctx context.Context, audioPath string) (*DiarizationResult, error) {
	result, _, err := d.DiarizeClusters(ctx, audioPath)
	return result, err
}

// DiarizeClusters выполняет пайплайн и дополнительно возвращает кластеры
// с центроидами — для сопоставления с голосовыми профилями без
// повторного извлечения эмбеддингов
func (d *Diarizer) DiarizeClusters(ctx context.Context, audioPath string) (*DiarizationResult, []SpeakerCluster, error) {
	d.mu.RLock()
	expected := d.config.ExpectedSpeakers
	d.mu.RUnlock()

	return d.diarizeClusters(ctx, audioPath, expected)
}

// DiarizeClustersAuto как DiarizeClusters, но число спикеров всегда
// определяет кластеризация, независимо от ExpectedSpeakers конфигурации.
// Идентификация по профилям работает только через этот вариант:
// навязанное разбиение склеивает или дробит незнакомые голоса
func (d *Diarizer) DiarizeClustersAuto(ctx context.Context, audioPath string) (*DiarizationResult, []SpeakerCluster, error) {
	return d.diarizeClusters(ctx, audioPath, 0)
}

func (d *Diarizer) diarizeClusters(ctx context.Context, audioPath string, expectedSpeakers int) (*DiarizationResult, []SpeakerCluster, error) {
	d.mu.RLock()
	config := d.config
	vad := d.vad
	d.mu.RUnlock()

	startTime := time.Now()
	log.Printf("[Diarization] Начало диаризации: %s", audioPath)

	// Этап 1: извлечение признаков
	features, err := d.features.Extract(audioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("feature extraction failed: %w", err)
	}
	log.Printf("[Diarization] Аудио загружено: %.1f сек, %d фреймов", features.Duration, features.NumFrames())

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Этап 2: детекция голосовой активности
	voiceSegments, err := vad.DetectVoiceActivity(features, config.MinSpeechDuration)
	if err != nil {
		return nil, nil, fmt.Errorf("voice activity detection failed: %w", err)
	}
	log.Printf("[Diarization] Найдено сегментов речи: %d", len(voiceSegments))

	// Тишина — корректный результат, а не ошибка
	if len(voiceSegments) == 0 {
		return &DiarizationResult{
			AudioPath:      audioPath,
			TotalDuration:  features.Duration,
			SpeakerCount:   0,
			Speakers:       []Speaker{},
			Segments:       []SpeakerSegment{},
			Confidence:     0,
			ProcessingTime: time.Since(startTime),
		}, nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Этап 3: эмбеддинги по сегментам
	embeddings, err := d.extractEmbeddings(ctx, features, voiceSegments, config.EmbeddingWorkers)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Этап 4: кластеризация
	clusters, err := d.clusterer.Cluster(embeddings, expectedSpeakers)
	if err != nil {
		return nil, nil, fmt.Errorf("clustering failed: %w", err)
	}
	log.Printf("[Diarization] Кластеров: %d", len(clusters))

	// Этап 5: таймлайн
	segmentByStart := make(map[float64]VoiceSegment, len(voiceSegments))
	for _, seg := range voiceSegments {
		segmentByStart[seg.Start] = seg
	}

	speakers, segments := buildTimeline(clusters, segmentByStart, features, d.features.MelProcessor())

	result := &DiarizationResult{
		AudioPath:      audioPath,
		TotalDuration:  features.Duration,
		SpeakerCount:   len(speakers),
		Speakers:       speakers,
		Segments:       segments,
		Confidence:     overallConfidence(segments),
		ProcessingTime: time.Since(startTime),
	}

	log.Printf("[Diarization] Готово за %v: %d спикеров, %d сегментов",
		result.ProcessingTime, result.SpeakerCount, len(result.Segments))

	return result, clusters, nil
}

// DiarizeWithTranscript выполняет диаризацию и накладывает транскрипцию
func (d *Diarizer) DiarizeWithTranscript(ctx context.Context, audioPath string, transcript []TranscriptSegment) (*DiarizationResult, error) {
	result, err := d.Diarize(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	result.Segments = AlignTranscript(result.Segments, transcript)
	result.Confidence = overallConfidence(result.Segments)

	return result, nil
}

// VoiceEmbeddings извлекает эмбеддинги всех сегментов речи файла
// без кластеризации — для создания голосовых профилей
// Возвращает эмбеддинги и суммарную длительность речи
func (d *Diarizer) VoiceEmbeddings(ctx context.Context, audioPath string) ([]SpeakerEmbedding, float64, error) {
	d.mu.RLock()
	config := d.config
	vad := d.vad
	d.mu.RUnlock()

	features, err := d.features.Extract(audioPath)
	if err != nil {
		return nil, 0, fmt.Errorf("feature extraction failed: %w", err)
	}

	voiceSegments, err := vad.DetectVoiceActivity(features, config.MinSpeechDuration)
	if err != nil {
		return nil, 0, fmt.Errorf("voice activity detection failed: %w", err)
	}
	if len(voiceSegments) == 0 {
		return nil, 0, ErrNoVoiceDetected
	}

	embeddings, err := d.extractEmbeddings(ctx, features, voiceSegments, config.EmbeddingWorkers)
	if err != nil {
		return nil, 0, err
	}

	var speechDuration float64
	for _, seg := range voiceSegments {
		speechDuration += seg.Duration
	}

	return embeddings, speechDuration, nil
}

// extractEmbeddings извлекает эмбеддинги сегментов с ограниченным параллелизмом
// Сегменты с ошибками пропускаются; если не удался ни один — ошибка
func (d *Diarizer) extractEmbeddings(ctx context.Context, features *AudioFeatures, voiceSegments []VoiceSegment, workers int) ([]SpeakerEmbedding, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*SpeakerEmbedding, len(voiceSegments))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, seg := range voiceSegments {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, seg VoiceSegment) {
			defer wg.Done()
			defer func() { <-sem }()

			startSample := int(seg.Start * float64(features.SampleRate))
			endSample := int(seg.End() * float64(features.SampleRate))
			if endSample > len(features.Samples) {
				endSample = len(features.Samples)
			}
			if startSample >= endSample {
				return
			}

			vector, err := d.encoder.Encode(features.Samples[startSample:endSample])
			if err != nil {
				log.Printf("[Diarization] Пропуск сегмента %.2f-%.2f: %v", seg.Start, seg.End(), err)
				return
			}

			results[idx] = &SpeakerEmbedding{
				Vector:    vector,
				Timestamp: seg.Start,
			}
		}(i, seg)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings := make([]SpeakerEmbedding, 0, len(results))
	for _, r := range results {
		if r != nil {
			embeddings = append(embeddings, *r)
		}
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no segment produced an embedding", ErrEmbeddingExtractionFailed)
	}

	return embeddings, nil
}

// overallConfidence длительностно-взвешенная средняя уверенность сегментов
func overallConfidence(segments []SpeakerSegment) float32 {
	var weighted, total float64
	for _, seg := range segments {
		dur := seg.End - seg.Start
		weighted += float64(seg.Confidence) * dur
		total += dur
	}
	if total == 0 {
		return 0
	}
	return float32(weighted / total)
}

// Close освобождает ресурсы энкодера и VAD
func (d *Diarizer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		d.encoder.Close()
		d.encoder = nil
	}
	if closer, ok := d.vad.(interface{ Close() }); ok {
		closer.Close()
	}
}
