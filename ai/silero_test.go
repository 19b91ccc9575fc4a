package ai

import (
	"os"
	"path/filepath"
	"testing"
)

// sileroModelPath возвращает путь к модели из окружения или стандартное место
func sileroModelPath(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("VOXNOTE_SILERO_MODEL"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home dir: %v", err)
	}
	return filepath.Join(home, ".voxnote", "models", "silero-vad-v5.onnx")
}

func TestSileroVAD_SilenceVsTone(t *testing.T) {
	modelPath := sileroModelPath(t)
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("Silero VAD model not found, skipping test")
	}

	vad, err := NewSileroVAD(DefaultSileroVADConfig(modelPath))
	if err != nil {
		t.Fatalf("Failed to create Silero VAD: %v", err)
	}
	defer vad.Close()

	// Тишина должна давать низкую вероятность речи
	silence := make([]float32, 512)
	probSilence, err := vad.processChunk(silence)
	if err != nil {
		t.Fatalf("Failed to process silence: %v", err)
	}
	if probSilence > 0.5 {
		t.Errorf("Silence probability too high: %.3f", probSilence)
	}
	t.Logf("Silence probability: %.3f", probSilence)
}

func TestSileroVAD_ModelNotFound(t *testing.T) {
	_, err := NewSileroVAD(DefaultSileroVADConfig("/nonexistent/silero.onnx"))
	if err == nil {
		t.Fatal("Expected error for missing model file")
	}
}
