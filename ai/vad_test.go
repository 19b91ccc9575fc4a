package ai

import (
	"math"
	"testing"
)

// makeFeatures строит синтетические признаки из энергии фреймов
// frameDur 10мс как у дефолтного mel-процессора
func makeFeatures(energy []float32) *AudioFeatures {
	const frameDur = 0.01
	return &AudioFeatures{
		SampleRate:    16000,
		Duration:      float64(len(energy)) * frameDur,
		FrameDuration: frameDur,
		Energy:        energy,
	}
}

type block struct {
	frames int
	value  float32
}

// energyPattern строит массив энергии из блоков одинаковых значений
func energyPattern(blocks ...block) []float32 {
	var energy []float32
	for _, b := range blocks {
		for i := 0; i < b.frames; i++ {
			energy = append(energy, b.value)
		}
	}
	return energy
}

func TestEnergyVAD_Empty(t *testing.T) {
	vad := NewEnergyVAD(0.5)

	segments, err := vad.DetectVoiceActivity(makeFeatures(nil), 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Expected no segments for empty features, got %d", len(segments))
	}
}

func TestEnergyVAD_Silence(t *testing.T) {
	vad := NewEnergyVAD(0.5)

	// 5 секунд тишины ниже порога
	features := makeFeatures(energyPattern(block{500, 0.001}))

	segments, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Silence should produce no segments, got %d", len(segments))
	}
}

func TestEnergyVAD_TwoSegments(t *testing.T) {
	vad := NewEnergyVAD(0.5)

	// речь 2с - пауза 1с - речь 3с
	features := makeFeatures(energyPattern(
		block{200, 0.05},
		block{100, 0.001},
		block{300, 0.05},
	))

	segments, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}

	if math.Abs(segments[0].Start) > 0.05 {
		t.Errorf("First segment should start near 0, got %f", segments[0].Start)
	}
	if math.Abs(segments[0].Duration-2.0) > 0.1 {
		t.Errorf("First segment duration should be ~2.0s, got %f", segments[0].Duration)
	}
	if math.Abs(segments[1].Start-3.0) > 0.1 {
		t.Errorf("Second segment should start near 3.0s, got %f", segments[1].Start)
	}

	// Сегменты не пересекаются и упорядочены
	if segments[0].End() > segments[1].Start {
		t.Error("Segments should not overlap")
	}
}

func TestEnergyVAD_ShortSegmentDropped(t *testing.T) {
	vad := NewEnergyVAD(0.5)

	// речь 0.5с - пауза 1с - речь 2с: первый сегмент короче minDuration
	features := makeFeatures(energyPattern(
		block{50, 0.05},
		block{100, 0.001},
		block{200, 0.05},
	))

	segments, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Short segment should be dropped, expected 1 segment, got %d", len(segments))
	}
	if segments[0].Start < 1.0 {
		t.Errorf("Remaining segment should be the later one, start=%f", segments[0].Start)
	}
}

func TestEnergyVAD_ShortPauseKeepsSegment(t *testing.T) {
	vad := NewEnergyVAD(0.5)

	// Пауза 0.1с короче MinSilenceDuration (0.3с) - сегмент не разрывается
	features := makeFeatures(energyPattern(
		block{100, 0.05},
		block{10, 0.001},
		block{100, 0.05},
	))

	segments, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Short pause should not split the segment, got %d segments", len(segments))
	}
	if math.Abs(segments[0].Duration-2.1) > 0.1 {
		t.Errorf("Segment should span the pause, duration=%f", segments[0].Duration)
	}
}

func TestEnergyVAD_EndsWithSpeech(t *testing.T) {
	vad := NewEnergyVAD(0.5)

	features := makeFeatures(energyPattern(
		block{100, 0.001},
		block{150, 0.05},
	))

	segments, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Expected 1 segment when file ends with speech, got %d", len(segments))
	}
	if math.Abs(segments[0].Start-1.0) > 0.05 {
		t.Errorf("Segment should start near 1.0s, got %f", segments[0].Start)
	}
}

func TestEnergyVAD_Deterministic(t *testing.T) {
	vad := NewEnergyVAD(0.5)
	features := makeFeatures(energyPattern(
		block{200, 0.05},
		block{100, 0.001},
		block{300, 0.05},
	))

	first, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}
	second, err := vad.DetectVoiceActivity(features, 1.0)
	if err != nil {
		t.Fatalf("DetectVoiceActivity failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Results differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Segment %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
