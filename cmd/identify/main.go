// Идентификация спикеров записи по сохранённым голосовым профилям
//
// Запуск: go run ./cmd/identify -embedding-model models/wespeaker.onnx recording.wav

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
	"voxnote/voiceprint"
)

func main() {
	cfg := config.Load()

	if flag.NArg() < 1 {
		log.Fatalf("Usage: identify [flags] <audio file>")
	}
	audioPath := flag.Arg(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := voiceprint.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	if store.Count() == 0 {
		log.Fatalf("No speaker profiles in %s, enroll speakers first", cfg.DataDir)
	}

	encoder, err := ai.NewONNXSpeakerEncoder(ai.DefaultONNXEncoderConfig(cfg.EmbeddingModelPath))
	if err != nil {
		log.Fatalf("Failed to create encoder: %v", err)
	}

	diarizerConfig := ai.DefaultDiarizerConfig()
	diarizerConfig.MaxSpeakers = cfg.MaxSpeakers
	diarizerConfig.MinSpeechDuration = cfg.MinSpeechDuration

	diarizer, err := ai.NewDiarizer(encoder, diarizerConfig)
	if err != nil {
		encoder.Close()
		log.Fatalf("Failed to create diarizer: %v", err)
	}
	defer diarizer.Close()

	if cfg.VADModelPath != "" {
		vad, err := ai.NewSileroVAD(ai.DefaultSileroVADConfig(cfg.VADModelPath))
		if err != nil {
			log.Fatalf("Failed to create Silero VAD: %v", err)
		}
		diarizer.SetVoiceActivityDetector(vad)
	}

	identifier := voiceprint.NewIdentifier(diarizer, float32(cfg.SimilarityThreshold))

	result, err := identifier.IdentifySpeakers(ctx, audioPath, store.GetAll())
	if err != nil {
		log.Fatalf("Identification failed: %v", err)
	}

	for _, sp := range result.IdentifiedSpeakers {
		if err := store.MarkSeen(sp.Profile.ID); err != nil {
			log.Printf("Failed to mark profile seen: %v", err)
		}
		fmt.Printf("%s -> %s (similarity %.2f, %.1f sec of speech)\n",
			sp.SpeakerID, sp.Profile.Name, sp.Confidence, speakingTime(sp.Segments))
	}
	for _, sp := range result.UnidentifiedSpeakers {
		fmt.Printf("%s -> unknown (%.1f sec of speech)\n", sp.ID, sp.TotalSpeakingTime)
	}

	if cfg.OutputPath != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal result: %v", err)
		}
		if err := os.WriteFile(cfg.OutputPath, data, 0644); err != nil {
			log.Fatalf("Failed to write result: %v", err)
		}
	}
}

func speakingTime(segments []ai.SpeakerSegment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.End - seg.Start
	}
	return total
}
