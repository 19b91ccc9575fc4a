package ai

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voxnote/audio"
)

// bucketEncoder детерминированный энкодер для тестов:
// различает спикеров по средней амплитуде сегмента
type bucketEncoder struct {
	closed bool
}

func (e *bucketEncoder) Encode(samples []float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, ErrEmbeddingExtractionFailed
	}

	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	meanAbs := sum / float64(len(samples))

	v := make([]float32, 16)
	if meanAbs < 0.35 {
		v[0] = 1
	} else {
		v[1] = 1
	}
	return v, nil
}

func (e *bucketEncoder) Dim() int { return 16 }

func (e *bucketEncoder) Close() { e.closed = true }

// failingEncoder всегда возвращает ошибку
type failingEncoder struct{}

func (e *failingEncoder) Encode(samples []float32) ([]float32, error) {
	return nil, ErrEmbeddingExtractionFailed
}

func (e *failingEncoder) Dim() int { return 16 }

func (e *failingEncoder) Close() {}

// burst интервал синусоиды заданной амплитуды
type burst struct {
	start, end float64
	amplitude  float64
}

// writeTestWAV пишет WAV файл: синусоида 220Hz в указанных интервалах, иначе тишина
func writeTestWAV(t *testing.T, path string, totalSec float64, bursts []burst) {
	t.Helper()

	writer, err := audio.NewWAVWriter(path, audio.PipelineSampleRate, 1)
	if err != nil {
		t.Fatalf("Failed to create WAV writer: %v", err)
	}

	numSamples := int(totalSec * audio.PipelineSampleRate)
	samples := make([]float32, numSamples)
	for _, b := range bursts {
		startSample := int(b.start * audio.PipelineSampleRate)
		endSample := int(b.end * audio.PipelineSampleRate)
		for i := startSample; i < endSample && i < numSamples; i++ {
			tSec := float64(i) / audio.PipelineSampleRate
			samples[i] = float32(b.amplitude * math.Sin(2*math.Pi*220*tSec))
		}
	}

	if err := writer.Write(samples); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Failed to finalize WAV: %v", err)
	}
}

func TestNewDiarizer_NilEncoder(t *testing.T) {
	_, err := NewDiarizer(nil, DefaultDiarizerConfig())
	if err == nil {
		t.Error("Expected error for nil encoder")
	}
}

func TestNewDiarizer_InvalidMaxSpeakers(t *testing.T) {
	config := DefaultDiarizerConfig()
	config.MaxSpeakers = 0

	_, err := NewDiarizer(&bucketEncoder{}, config)
	if err == nil {
		t.Error("Expected error for MaxSpeakers < 1")
	}
}

func TestDiarizer_FileNotFound(t *testing.T) {
	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	_, err = diarizer.Diarize(context.Background(), "/nonexistent/audio.wav")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestDiarizer_FileTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	_, err = diarizer.Diarize(context.Background(), path)
	if !errors.Is(err, ErrFileTooSmall) {
		t.Errorf("Expected ErrFileTooSmall, got %v", err)
	}
}

func TestDiarizer_TwoSpeakers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.wav")
	// Тихий спикер 0-10с и 30-42с, громкий 15-23с
	writeTestWAV(t, path, 45, []burst{
		{start: 0, end: 10, amplitude: 0.3},
		{start: 15, end: 23, amplitude: 0.8},
		{start: 30, end: 42, amplitude: 0.3},
	})

	config := DefaultDiarizerConfig()
	config.ExpectedSpeakers = 2

	diarizer, err := NewDiarizer(&bucketEncoder{}, config)
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	result, err := diarizer.Diarize(context.Background(), path)
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}

	if result.SpeakerCount != 2 {
		t.Fatalf("Expected 2 speakers, got %d", result.SpeakerCount)
	}
	if result.SpeakerCount != len(result.Speakers) {
		t.Errorf("SpeakerCount %d != len(Speakers) %d", result.SpeakerCount, len(result.Speakers))
	}
	if len(result.Segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(result.Segments))
	}

	// Сегменты упорядочены по началу
	for i := 1; i < len(result.Segments); i++ {
		if result.Segments[i].Start < result.Segments[i-1].Start {
			t.Error("Segments should be ordered by start time")
		}
	}

	// Первый и третий сегмент - один спикер, второй - другой
	if result.Segments[0].SpeakerID != result.Segments[2].SpeakerID {
		t.Error("First and third segments should belong to the same speaker")
	}
	if result.Segments[0].SpeakerID == result.Segments[1].SpeakerID {
		t.Error("First and second segments should belong to different speakers")
	}

	// SpeakerID каждого сегмента ссылается на спикера результата
	ids := make(map[string]bool)
	for _, sp := range result.Speakers {
		ids[sp.ID] = true
	}
	for _, seg := range result.Segments {
		if !ids[seg.SpeakerID] {
			t.Errorf("Segment references unknown speaker %s", seg.SpeakerID)
		}
		if seg.End <= seg.Start {
			t.Errorf("Segment has non-positive duration: %f-%f", seg.Start, seg.End)
		}
		if seg.AudioLevel < 0 || seg.AudioLevel > 1 {
			t.Errorf("AudioLevel out of range: %f", seg.AudioLevel)
		}
	}

	// Громкий сегмент громче тихого
	if result.Segments[1].AudioLevel <= result.Segments[0].AudioLevel {
		t.Errorf("Loud segment should have higher audio level: %f vs %f",
			result.Segments[1].AudioLevel, result.Segments[0].AudioLevel)
	}

	if math.Abs(result.TotalDuration-45) > 0.1 {
		t.Errorf("Expected total duration ~45s, got %f", result.TotalDuration)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", result.Confidence)
	}
}

func TestDiarizer_SilentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	writeTestWAV(t, path, 5, nil)

	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	result, err := diarizer.Diarize(context.Background(), path)
	if err != nil {
		t.Fatalf("Silent file should not be an error: %v", err)
	}

	if result.SpeakerCount != 0 {
		t.Errorf("Expected 0 speakers for silence, got %d", result.SpeakerCount)
	}
	if len(result.Segments) != 0 {
		t.Errorf("Expected no segments for silence, got %d", len(result.Segments))
	}
}

func TestDiarizer_MaxSpeakersBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.wav")
	writeTestWAV(t, path, 20, []burst{
		{start: 0, end: 3, amplitude: 0.3},
		{start: 5, end: 8, amplitude: 0.8},
		{start: 10, end: 13, amplitude: 0.3},
		{start: 15, end: 18, amplitude: 0.8},
	})

	config := DefaultDiarizerConfig()
	config.MaxSpeakers = 1

	diarizer, err := NewDiarizer(&bucketEncoder{}, config)
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	result, err := diarizer.Diarize(context.Background(), path)
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}
	if result.SpeakerCount > 1 {
		t.Errorf("Speaker count %d exceeds MaxSpeakers 1", result.SpeakerCount)
	}
}

func TestDiarizer_Cancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	writeTestWAV(t, path, 10, []burst{{start: 0, end: 8, amplitude: 0.3}})

	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = diarizer.Diarize(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDiarizer_AllEmbeddingsFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	writeTestWAV(t, path, 10, []burst{{start: 0, end: 8, amplitude: 0.3}})

	diarizer, err := NewDiarizer(&failingEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	_, err = diarizer.Diarize(context.Background(), path)
	if !errors.Is(err, ErrEmbeddingExtractionFailed) {
		t.Errorf("Expected ErrEmbeddingExtractionFailed, got %v", err)
	}
}

func TestDiarizer_WithTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.wav")
	writeTestWAV(t, path, 12, []burst{{start: 0, end: 10, amplitude: 0.3}})

	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	transcript := []TranscriptSegment{
		{Text: "привет мир", Start: 0, End: 10, Confidence: 0.95},
	}

	result, err := diarizer.DiarizeWithTranscript(context.Background(), path, transcript)
	if err != nil {
		t.Fatalf("DiarizeWithTranscript failed: %v", err)
	}
	if len(result.Segments) == 0 {
		t.Fatal("Expected at least one segment")
	}
	if result.Segments[0].Text != "привет мир" {
		t.Errorf("Expected aligned text, got %q", result.Segments[0].Text)
	}
}

func TestDiarizer_VoiceEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.wav")
	writeTestWAV(t, path, 10, []burst{{start: 0, end: 8, amplitude: 0.3}})

	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	embeddings, duration, err := diarizer.VoiceEmbeddings(context.Background(), path)
	if err != nil {
		t.Fatalf("VoiceEmbeddings failed: %v", err)
	}
	if len(embeddings) == 0 {
		t.Fatal("Expected embeddings")
	}
	if duration <= 0 {
		t.Errorf("Expected positive speech duration, got %f", duration)
	}
}

func TestDiarizer_VoiceEmbeddingsSilence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	writeTestWAV(t, path, 5, nil)

	diarizer, err := NewDiarizer(&bucketEncoder{}, DefaultDiarizerConfig())
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	_, _, err = diarizer.VoiceEmbeddings(context.Background(), path)
	if !errors.Is(err, ErrNoVoiceDetected) {
		t.Errorf("Expected ErrNoVoiceDetected, got %v", err)
	}
}

// Идентификация по профилям не должна наследовать навязанное число
// спикеров из конфигурации: одноголосая запись с ExpectedSpeakers=2
// при автоопределении даёт одного спикера
func TestDiarizer_ClustersAutoIgnoresExpectedSpeakers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.wav")
	writeTestWAV(t, path, 20, []burst{
		{start: 0, end: 5, amplitude: 0.3},
		{start: 8, end: 15, amplitude: 0.3},
	})

	config := DefaultDiarizerConfig()
	config.ExpectedSpeakers = 2

	diarizer, err := NewDiarizer(&bucketEncoder{}, config)
	if err != nil {
		t.Fatalf("Failed to create diarizer: %v", err)
	}

	result, clusters, err := diarizer.DiarizeClustersAuto(context.Background(), path)
	if err != nil {
		t.Fatalf("DiarizeClustersAuto failed: %v", err)
	}
	if result.SpeakerCount != 1 {
		t.Errorf("Expected 1 speaker with auto estimation, got %d", result.SpeakerCount)
	}
	if len(clusters) != 1 {
		t.Errorf("Expected 1 cluster with auto estimation, got %d", len(clusters))
	}

	// Обычная диаризация продолжает уважать ExpectedSpeakers
	forced, err := diarizer.Diarize(context.Background(), path)
	if err != nil {
		t.Fatalf("Diarize failed: %v", err)
	}
	if forced.SpeakerCount != 2 {
		t.Errorf("Expected 2 speakers with ExpectedSpeakers=2, got %d", forced.SpeakerCount)
	}
}
