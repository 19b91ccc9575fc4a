// Создание или дообучение голосового профиля спикера
//
// Из файлов: go run ./cmd/enroll -name "Иван" sample1.wav sample2.mp3
// С микрофона: go run ./cmd/enroll -name "Иван" -record 10
// Дообучение: go run ./cmd/enroll -id <uuid> more.wav

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"voxnote/ai"
	"voxnote/audio"
	"voxnote/internal/config"
	"voxnote/voiceprint"
)

var (
	nameFlag   = flag.String("name", "", "Speaker name for a new profile")
	idFlag     = flag.String("id", "", "Existing profile ID to update")
	recordFlag = flag.Float64("record", 0, "Record N seconds from the microphone instead of files")
	deviceFlag = flag.String("device", "", "Input device name (substring match)")
)

func main() {
	cfg := config.Load()

	if *nameFlag == "" && *idFlag == "" {
		log.Fatalf("Either -name (new profile) or -id (update) is required")
	}

	store, err := voiceprint.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	encoder, err := ai.NewONNXSpeakerEncoder(ai.DefaultONNXEncoderConfig(cfg.EmbeddingModelPath))
	if err != nil {
		log.Fatalf("Failed to create encoder: %v", err)
	}

	diarizerConfig := ai.DefaultDiarizerConfig()
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

	manager := voiceprint.NewManager(diarizer)
	ctx := context.Background()

	samples := flag.Args()
	source := "file"

	if *recordFlag > 0 {
		path, err := recordSample(ctx, *recordFlag)
		if err != nil {
			log.Fatalf("Recording failed: %v", err)
		}
		samples = append(samples, path)
		source = "mic"
	}

	if *idFlag != "" {
		updateProfile(ctx, store, manager, *idFlag, samples)
		return
	}

	profile, err := manager.CreateProfile(ctx, *nameFlag, samples)
	if err != nil {
		log.Fatalf("Failed to create profile: %v", err)
	}
	profile.Source = source

	// Голос может уже принадлежать существующему профилю
	matcher := voiceprint.NewMatcher(store)
	for _, match := range matcher.FindAllMatches(profile.Embedding, voiceprint.ThresholdMedium) {
		log.Printf("Похож на существующий профиль %s (%s): similarity=%.2f, обновление: -id %s",
			match.Profile.Name, match.Confidence, match.Similarity, match.Profile.ID)
	}

	// Первый сэмпл сохраняем как эталон для воспроизведения
	if len(samples) > 0 {
		if samplePath, err := exportSample(store, profile.ID, samples[0]); err != nil {
			log.Printf("Failed to export sample clip: %v", err)
		} else {
			profile.SamplePath = samplePath
		}
	}

	if err := store.Add(*profile); err != nil {
		log.Fatalf("Failed to save profile: %v", err)
	}

	fmt.Printf("Profile created: %s (%s)\n", profile.Name, profile.ID)
	fmt.Printf("Embeddings: %d, duration: %.1f sec\n", profile.SampleCount, profile.TotalDuration)
}

func updateProfile(ctx context.Context, store *voiceprint.Store, manager *voiceprint.Manager, id string, samples []string) {
	profile, err := store.Get(id)
	if err != nil {
		log.Fatalf("Profile not found: %v", err)
	}

	updated, err := manager.UpdateProfile(ctx, *profile, samples)
	if err != nil {
		log.Fatalf("Failed to update profile: %v", err)
	}

	if err := store.Update(*updated); err != nil {
		log.Fatalf("Failed to save profile: %v", err)
	}

	fmt.Printf("Profile updated: %s (%s)\n", updated.Name, updated.ID)
	fmt.Printf("Embeddings: %d, duration: %.1f sec\n", updated.SampleCount, updated.TotalDuration)
}

// recordSample записывает сэмпл с микрофона во временный WAV файл
func recordSample(ctx context.Context, durationSec float64) (string, error) {
	recorder, err := audio.NewRecorder()
	if err != nil {
		return "", err
	}
	defer recorder.Close()

	if *deviceFlag != "" {
		if err := recorder.SetDeviceByName(*deviceFlag); err != nil {
			return "", err
		}
	}

	log.Printf("Recording %.0f seconds, speak now...", durationSec)
	samples, err := recorder.Record(ctx, durationSec)
	if err != nil {
		return "", err
	}

	path := filepath.Join(os.TempDir(), "enroll_sample.wav")
	writer, err := audio.NewWAVWriter(path, audio.PipelineSampleRate, 1)
	if err != nil {
		return "", err
	}
	if err := writer.Write(samples); err != nil {
		return "", err
	}
	if err := writer.Finalize(); err != nil {
		return "", err
	}

	log.Printf("Recorded %d samples to %s", len(samples), path)
	return path, nil
}

// exportSample копирует аудио-сэмпл в директорию профилей
// WAV перекодируется в MP3 для экономии места
func exportSample(store *voiceprint.Store, profileID, sourcePath string) (string, error) {
	samples, err := audio.LoadMono(sourcePath)
	if err != nil {
		return "", err
	}

	// Сэмпл не длиннее 10 секунд
	maxSamples := audio.PipelineSampleRate * 10
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}

	dir := store.SamplesDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, profileID+".mp3")
	writer, err := audio.NewMP3Writer(path, audio.PipelineSampleRate, 1)
	if err != nil {
		return "", err
	}
	if err := writer.Write(samples); err != nil {
		writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	return path, nil
}
