package audio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWAV_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")

	original := make([]float32, 16000)
	for i := range original {
		original[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	writer, err := NewWAVWriter(path, 16000, 1)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Write(original); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}

	reader, err := NewWAVReader(path)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	if reader.SampleRate() != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", reader.SampleRate())
	}
	if reader.Channels() != 1 {
		t.Errorf("Expected 1 channel, got %d", reader.Channels())
	}
	if math.Abs(reader.Duration()-1.0) > 0.01 {
		t.Errorf("Expected duration ~1.0s, got %f", reader.Duration())
	}

	samples, err := reader.ReadAllMono()
	if err != nil {
		t.Fatalf("Failed to read samples: %v", err)
	}
	if len(samples) != len(original) {
		t.Fatalf("Expected %d samples, got %d", len(original), len(samples))
	}

	// PCM16 квантование даёт погрешность ~1/32767
	for i := 0; i < len(samples); i += 1000 {
		if math.Abs(float64(samples[i]-original[i])) > 0.001 {
			t.Errorf("Sample %d differs: %f vs %f", i, samples[i], original[i])
		}
	}
}

func TestWAVReader_NotFound(t *testing.T) {
	_, err := NewWAVReader("/nonexistent/file.wav")
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadMono_UnsupportedFormat(t *testing.T) {
	_, err := LoadMono("recording.ogg")
	if err == nil {
		t.Fatal("Expected error for unsupported format")
	}
}

func TestResample(t *testing.T) {
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = float32(i) / 8000
	}

	out := Resample(samples, 8000, 16000)
	if len(out) != 16000 {
		t.Errorf("Expected 16000 samples after upsampling, got %d", len(out))
	}

	// Линейная интерполяция сохраняет монотонность рампы
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("Resampled ramp not monotonic at %d", i)
		}
	}

	same := Resample(samples, 16000, 16000)
	if len(same) != len(samples) {
		t.Errorf("Same-rate resample should keep length, got %d", len(same))
	}
}
