// Диаризация аудиофайла: определяет кто и когда говорил
//
// Запуск: go run ./cmd/diarize -embedding-model models/wespeaker.onnx recording.wav
//
// Опционально:
//   -vad-model silero.onnx   - нейросетевой VAD вместо энергетического
//   -backend sherpa          - диаризация целиком через sherpa-onnx
//   -transcript transcript.json - наложить транскрипцию на таймлайн
//   -expected 2              - известное число спикеров

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"voxnote/ai"
	"voxnote/internal/config"
)

func main() {
	cfg := config.Load()

	if flag.NArg() < 1 {
		log.Fatalf("Usage: diarize [flags] <audio file>")
	}
	audioPath := flag.Arg(0)

	// Ctrl+C отменяет диаризацию без частичного результата
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var result *ai.DiarizationResult
	var err error

	switch cfg.Backend {
	case "sherpa":
		result, err = runSherpa(cfg, audioPath)
	default:
		result, err = runONNX(ctx, cfg, audioPath)
	}
	if err != nil {
		log.Fatalf("Diarization failed: %v", err)
	}

	if err := writeResult(cfg.OutputPath, result); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}

	log.Printf("Speakers: %d, segments: %d, confidence: %.2f",
		result.SpeakerCount, len(result.Segments), result.Confidence)
}

func runONNX(ctx context.Context, cfg *config.Config, audioPath string) (*ai.DiarizationResult, error) {
	encoder, err := ai.NewONNXSpeakerEncoder(ai.DefaultONNXEncoderConfig(cfg.EmbeddingModelPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	diarizerConfig := ai.DefaultDiarizerConfig()
	diarizerConfig.ExpectedSpeakers = cfg.ExpectedSpeakers
	diarizerConfig.MaxSpeakers = cfg.MaxSpeakers
	diarizerConfig.SimilarityThreshold = float32(cfg.SimilarityThreshold)
	diarizerConfig.MinSpeechDuration = cfg.MinSpeechDuration

	diarizer, err := ai.NewDiarizer(encoder, diarizerConfig)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	defer diarizer.Close()

	if cfg.VADModelPath != "" {
		vad, err := ai.NewSileroVAD(ai.DefaultSileroVADConfig(cfg.VADModelPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create Silero VAD: %w", err)
		}
		diarizer.SetVoiceActivityDetector(vad)
	}

	if cfg.TranscriptPath != "" {
		transcript, err := loadTranscript(cfg.TranscriptPath)
		if err != nil {
			return nil, err
		}
		return diarizer.DiarizeWithTranscript(ctx, audioPath, transcript)
	}

	return diarizer.Diarize(ctx, audioPath)
}

func runSherpa(cfg *config.Config, audioPath string) (*ai.DiarizationResult, error) {
	if cfg.SegmentationModelPath == "" {
		return nil, fmt.Errorf("sherpa backend requires -segmentation-model")
	}

	sherpaConfig := ai.DefaultSherpaDiarizerConfig(cfg.SegmentationModelPath, cfg.EmbeddingModelPath)
	sherpaConfig.NumSpeakers = cfg.ExpectedSpeakers
	if cfg.ExpectedSpeakers == 0 {
		sherpaConfig.NumSpeakers = -1
	}

	diarizer, err := ai.NewSherpaDiarizer(sherpaConfig)
	if err != nil {
		return nil, err
	}
	defer diarizer.Close()

	return diarizer.Diarize(audioPath)
}

func loadTranscript(path string) ([]ai.TranscriptSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var transcript []ai.TranscriptSegment
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}

	return transcript, nil
}

func writeResult(outputPath string, result *ai.DiarizationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	if outputPath == "" {
		fmt.Println(string(data))
		return nil
	}

	return os.WriteFile(outputPath, data, 0644)
}
