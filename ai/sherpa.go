package ai

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"voxnote/audio"
)

// SherpaDiarizerConfig конфигурация для SherpaDiarizer
type SherpaDiarizerConfig struct {
	SegmentationModelPath string  // Путь к модели сегментации (pyannote)
	EmbeddingModelPath    string  // Путь к модели эмбеддингов (wespeaker/3dspeaker)
	NumThreads            int     // Количество потоков
	NumSpeakers           int     // Ожидаемое число спикеров, -1 = автоопределение
	ClusteringThreshold   float32 // Порог кластеризации (0.0-1.0)
	MinDurationOn         float32 // Минимальная длительность речи (сек)
	MinDurationOff        float32 // Минимальная длительность паузы (сек)
	Provider              string  // ONNX provider: cpu, cuda, coreml, auto
}

// detectBestProvider определяет лучший provider для текущей платформы
func detectBestProvider() string {
	// На macOS с Apple Silicon предпочитаем CoreML
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return "coreml"
	}
	// Для остальных платформ по умолчанию cpu
	return "cpu"
}

// DefaultSherpaDiarizerConfig возвращает конфигурацию по умолчанию
// с автоматическим определением лучшего provider для платформы
func DefaultSherpaDiarizerConfig(segmentationPath, embeddingPath string) SherpaDiarizerConfig {
	return SherpaDiarizerConfig{
		SegmentationModelPath: segmentationPath,
		EmbeddingModelPath:    embeddingPath,
		NumThreads:            4,
		NumSpeakers:           -1,
		ClusteringThreshold:   0.5,
		MinDurationOn:         0.3,
		MinDurationOff:        0.5,
		Provider:              "auto",
	}
}

// SherpaDiarizer альтернативный бэкенд диаризации через sherpa-onnx
// (pyannote сегментация + wespeaker эмбеддинги + быстрая кластеризация)
// Возвращает результат в том же формате что и Diarizer
type SherpaDiarizer struct {
	config      SherpaDiarizerConfig
	diarizer    *sherpa.OfflineSpeakerDiarization
	mu          sync.Mutex
	initialized bool
}

// NewSherpaDiarizer создаёт новый диаризатор на базе sherpa-onnx
func NewSherpaDiarizer(config SherpaDiarizerConfig) (*SherpaDiarizer, error) {
	if _, err := os.Stat(config.SegmentationModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("segmentation model not found: %s", config.SegmentationModelPath)
	}
	if _, err := os.Stat(config.EmbeddingModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("embedding model not found: %s", config.EmbeddingModelPath)
	}

	provider := config.Provider
	if provider == "auto" || provider == "" {
		provider = detectBestProvider()
	}
	log.Printf("[SherpaDiarizer] Using provider=%s (requested=%s)", provider, config.Provider)

	numClusters := config.NumSpeakers
	if numClusters == 0 {
		numClusters = -1
	}

	sherpaConfig := &sherpa.OfflineSpeakerDiarizationConfig{
		Segmentation: sherpa.OfflineSpeakerSegmentationModelConfig{
			Pyannote: sherpa.OfflineSpeakerSegmentationPyannoteModelConfig{
				Model: config.SegmentationModelPath,
			},
			NumThreads: config.NumThreads,
			Debug:      0,
			Provider:   provider,
		},
		Embedding: sherpa.SpeakerEmbeddingExtractorConfig{
			Model:      config.EmbeddingModelPath,
			NumThreads: config.NumThreads,
			Debug:      0,
			Provider:   provider,
		},
		Clustering: sherpa.FastClusteringConfig{
			NumClusters: numClusters,
			Threshold:   config.ClusteringThreshold,
		},
		MinDurationOn:  config.MinDurationOn,
		MinDurationOff: config.MinDurationOff,
	}

	diarizer := sherpa.NewOfflineSpeakerDiarization(sherpaConfig)
	if diarizer == nil {
		// Если аппаратный provider не сработал, пробуем CPU
		if provider != "cpu" {
			log.Printf("[SherpaDiarizer] %s provider failed, falling back to CPU", provider)
			sherpaConfig.Segmentation.Provider = "cpu"
			sherpaConfig.Embedding.Provider = "cpu"
			diarizer = sherpa.NewOfflineSpeakerDiarization(sherpaConfig)
			if diarizer == nil {
				return nil, fmt.Errorf("failed to create sherpa-onnx diarizer (tried %s and cpu)", provider)
			}
			provider = "cpu"
		} else {
			return nil, fmt.Errorf("failed to create sherpa-onnx diarizer")
		}
	}

	config.Provider = provider

	log.Printf("[SherpaDiarizer] Initialized: provider=%s, segmentation=%s, embedding=%s",
		provider, config.SegmentationModelPath, config.EmbeddingModelPath)

	return &SherpaDiarizer{
		config:      config,
		diarizer:    diarizer,
		initialized: true,
	}, nil
}

// Diarize выполняет диаризацию аудиофайла
func (d *SherpaDiarizer) Diarize(audioPath string) (*DiarizationResult, error) {
	samples, err := audio.LoadMono(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load audio: %w", err)
	}

	startTime := time.Now()

	segments, err := d.DiarizeSamples(samples)
	if err != nil {
		return nil, err
	}

	duration := float64(len(samples)) / float64(d.SampleRate())
	result := buildSherpaResult(audioPath, duration, segments)
	result.ProcessingTime = time.Since(startTime)
	return result, nil
}

// DiarizeSamples выполняет диаризацию аудио данных
// samples - float32, 16kHz, mono
func (d *SherpaDiarizer) DiarizeSamples(samples []float32) ([]SpeakerSegment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, fmt.Errorf("diarizer not initialized")
	}
	if len(samples) == 0 {
		return nil, nil
	}

	raw := d.diarizer.Process(samples)

	result := make([]SpeakerSegment, 0, len(raw))
	for _, seg := range raw {
		result = append(result, SpeakerSegment{
			SpeakerID: fmt.Sprintf("speaker_%d", seg.Speaker),
			Start:     float64(seg.Start),
			End:       float64(seg.End),
			// sherpa-onnx не выдаёт оценку уверенности по сегментам
			Confidence: 1.0,
		})
	}

	log.Printf("[SherpaDiarizer] Found %d segments", len(result))
	return result, nil
}

// buildSherpaResult агрегирует сегменты в итоговый результат диаризации
func buildSherpaResult(audioPath string, duration float64, segments []SpeakerSegment) *DiarizationResult {
	bySpeaker := make(map[string]*Speaker)
	var order []string

	for _, seg := range segments {
		sp, ok := bySpeaker[seg.SpeakerID]
		if !ok {
			sp = &Speaker{ID: seg.SpeakerID, AverageConfidence: 1.0}
			bySpeaker[seg.SpeakerID] = sp
			order = append(order, seg.SpeakerID)
		}
		sp.TotalSpeakingTime += seg.End - seg.Start
		sp.SegmentCount++
	}

	speakers := make([]Speaker, 0, len(order))
	for _, id := range order {
		speakers = append(speakers, *bySpeaker[id])
	}

	var confidence float32
	if len(segments) > 0 {
		confidence = 1.0
	}

	return &DiarizationResult{
		AudioPath:     audioPath,
		TotalDuration: duration,
		SpeakerCount:  len(speakers),
		Speakers:      speakers,
		Segments:      segments,
		Confidence:    confidence,
	}
}

// SetClusteringConfig обновляет параметры кластеризации
func (d *SherpaDiarizer) SetClusteringConfig(numClusters int, threshold float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.diarizer != nil {
		config := &sherpa.OfflineSpeakerDiarizationConfig{
			Clustering: sherpa.FastClusteringConfig{
				NumClusters: numClusters,
				Threshold:   threshold,
			},
		}
		d.diarizer.SetConfig(config)
	}
}

// SampleRate возвращает ожидаемую частоту дискретизации (16kHz)
func (d *SherpaDiarizer) SampleRate() int {
	if d.diarizer != nil {
		return d.diarizer.SampleRate()
	}
	return audio.PipelineSampleRate
}

// Close освобождает ресурсы
func (d *SherpaDiarizer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.diarizer != nil {
		sherpa.DeleteOfflineSpeakerDiarization(d.diarizer)
		d.diarizer = nil
	}
	d.initialized = false
	log.Printf("[SherpaDiarizer] Closed")
}

// GetProvider возвращает текущий ONNX provider (cpu, coreml, cuda)
func (d *SherpaDiarizer) GetProvider() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config.Provider
}
