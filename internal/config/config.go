package config

import (
	"flag"
	"path/filepath"
)

type Config struct {
	EmbeddingModelPath    string  // ONNX модель speaker encoder
	VADModelPath          string  // Silero VAD (пусто = энергетический VAD)
	SegmentationModelPath string  // pyannote сегментация для sherpa backend
	DataDir               string  // Директория данных (профили, сэмплы)
	Backend               string  // "onnx" или "sherpa"
	ExpectedSpeakers      int     // 0 = автоопределение
	MaxSpeakers           int     // Верхняя граница числа спикеров
	SimilarityThreshold   float64 // Порог кластеризации/идентификации
	MinSpeechDuration     float64 // Минимальная длительность сегмента (сек)
	TranscriptPath        string  // JSON с транскрипцией для наложения
	OutputPath            string  // Куда писать результат (пусто = stdout)
}

func Load() *Config {
	embeddingModel := flag.String("embedding-model", "models/wespeaker.onnx", "Path to speaker embedding ONNX model")
	vadModel := flag.String("vad-model", "", "Path to Silero VAD model (empty = energy VAD)")
	segmentationModel := flag.String("segmentation-model", "", "Path to pyannote segmentation model (sherpa backend)")
	dataDir := flag.String("data", "data", "Directory for speaker profiles and samples")
	backend := flag.String("backend", "onnx", "Diarization backend: onnx or sherpa")
	expected := flag.Int("expected", 0, "Expected number of speakers (0 = auto)")
	maxSpeakers := flag.Int("max-speakers", 10, "Maximum number of speakers")
	threshold := flag.Float64("threshold", 0.7, "Similarity threshold for clustering and identification")
	minSpeech := flag.Float64("min-speech", 1.0, "Minimum speech segment duration in seconds")
	transcript := flag.String("transcript", "", "Path to transcript JSON to align with the timeline")
	output := flag.String("output", "", "Path to write the result JSON (empty = stdout)")
	flag.Parse()

	return &Config{
		EmbeddingModelPath:    *embeddingModel,
		VADModelPath:          *vadModel,
		SegmentationModelPath: *segmentationModel,
		DataDir:               filepath.Clean(*dataDir),
		Backend:               *backend,
		ExpectedSpeakers:      *expected,
		MaxSpeakers:           *maxSpeakers,
		SimilarityThreshold:   *threshold,
		MinSpeechDuration:     *minSpeech,
		TranscriptPath:        *transcript,
		OutputPath:            *output,
	}
}
