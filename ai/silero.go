package ai

import (
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// SileroVADConfig конфигурация Silero VAD
type SileroVADConfig struct {
	ModelPath            string  // путь к ONNX модели
	SampleRate           int     // 8000 или 16000
	Threshold            float32 // порог вероятности речи (0.0 - 1.0)
	MinSilenceDurationMs int     // минимальная пауза для разделения сегментов (мс)
	SpeechPadMs          int     // padding вокруг речи (мс)
}

// DefaultSileroVADConfig возвращает конфигурацию по умолчанию
func DefaultSileroVADConfig(modelPath string) SileroVADConfig {
	return SileroVADConfig{
		ModelPath:            modelPath,
		SampleRate:           16000,
		Threshold:            0.5,
		MinSilenceDurationMs: 300,
		SpeechPadMs:          30,
	}
}

// SileroVAD нейросетевой детектор голосовой активности (Silero VAD, ONNX)
// Альтернатива EnergyVAD для шумных записей
type SileroVAD struct {
	session *ort.DynamicAdvancedSession
	config  SileroVADConfig

	// LSTM состояние модели (сохраняется между чанками одного прогона)
	state []float32

	// Контекст - последние N сэмплов предыдущего чанка
	// 64 сэмпла для 16kHz, 32 для 8kHz
	context []float32

	mu          sync.Mutex
	initialized bool
}

// NewSileroVAD создаёт новый Silero VAD
func NewSileroVAD(config SileroVADConfig) (*SileroVAD, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}
	if config.SampleRate != 8000 && config.SampleRate != 16000 {
		return nil, fmt.Errorf("sample rate must be 8000 or 16000, got %d", config.SampleRate)
	}

	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	// Silero VAD inputs: input, state, sr; outputs: output, stateN
	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	contextSize := 64
	if config.SampleRate == 8000 {
		contextSize = 32
	}

	vad := &SileroVAD{
		session:     session,
		config:      config,
		state:       make([]float32, 2*1*128), // [2, 1, 128] - h и c состояния LSTM
		context:     make([]float32, contextSize),
		initialized: true,
	}

	log.Printf("SileroVAD initialized: sample_rate=%d, threshold=%.2f", config.SampleRate, config.Threshold)
	return vad, nil
}

// resetState сбрасывает LSTM состояние и контекст перед новым прогоном
func (v *SileroVAD) resetState() {
	for i := range v.state {
		v.state[i] = 0
	}
	for i := range v.context {
		v.context[i] = 0
	}
}

// processChunk обрабатывает один чанк и возвращает вероятность речи
// Размер чанка: 512 сэмплов для 16kHz, 256 для 8kHz
func (v *SileroVAD) processChunk(samples []float32) (float32, error) {
	if !v.initialized {
		return 0, fmt.Errorf("SileroVAD not initialized")
	}

	contextSize := len(v.context)

	// Вход модели: context + samples
	inputData := make([]float32, contextSize+len(samples))
	copy(inputData[:contextSize], v.context)
	copy(inputData[contextSize:], samples)

	// Обновляем контекст для следующего чанка
	if len(samples) >= contextSize {
		copy(v.context, samples[len(samples)-contextSize:])
	} else {
		copy(v.context, v.context[len(samples):])
		copy(v.context[contextSize-len(samples):], samples)
	}

	inputShape := ort.NewShape(1, int64(len(inputData)))
	inputTensor, err := ort.NewTensor(inputShape, inputData)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateShape := ort.NewShape(2, 1, 128)
	stateTensor, err := ort.NewTensor(stateShape, v.state)
	if err != nil {
		return 0, fmt.Errorf("failed to create state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srShape := ort.NewShape(1)
	srTensor, err := ort.NewTensor(srShape, []int64{int64(v.config.SampleRate)})
	if err != nil {
		return 0, fmt.Errorf("failed to create sr tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputs := []ort.Value{nil, nil}
	err = v.session.Run([]ort.Value{inputTensor, stateTensor, srTensor}, outputs)
	if err != nil {
		return 0, fmt.Errorf("failed to run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	outputData := outputs[0].(*ort.Tensor[float32]).GetData()
	stateNData := outputs[1].(*ort.Tensor[float32]).GetData()
	copy(v.state, stateNData)

	if len(outputData) > 0 {
		return outputData[0], nil
	}
	return 0, nil
}

// DetectVoiceActivity реализует VoiceActivityDetector поверх Silero модели
// Сегменты короче minDuration отбрасываются
func (v *SileroVAD) DetectVoiceActivity(features *AudioFeatures, minDuration float64) ([]VoiceSegment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.resetState()

	samples := features.Samples
	windowSize := 512
	if v.config.SampleRate == 8000 {
		windowSize = 256
	}
	windowSec := float64(windowSize) / float64(v.config.SampleRate)

	minSilenceWindows := int(float64(v.config.MinSilenceDurationMs) / 1000.0 / windowSec)
	if minSilenceWindows < 1 {
		minSilenceWindows = 1
	}
	padSec := float64(v.config.SpeechPadMs) / 1000.0

	var segments []VoiceSegment
	segmentStart := -1.0
	silenceCount := 0
	lastVoicedEnd := 0.0

	closeSegment := func() {
		end := lastVoicedEnd + padSec
		if end > float64(len(samples))/float64(v.config.SampleRate) {
			end = float64(len(samples)) / float64(v.config.SampleRate)
		}
		if end-segmentStart >= minDuration {
			segments = append(segments, VoiceSegment{Start: segmentStart, Duration: end - segmentStart})
		}
		segmentStart = -1.0
	}

	chunk := make([]float32, windowSize)
	for i := 0; i < len(samples); i += windowSize {
		end := i + windowSize
		if end > len(samples) {
			// Дополняем нулями последний чанк
			for j := range chunk {
				chunk[j] = 0
			}
			copy(chunk, samples[i:])
		} else {
			copy(chunk, samples[i:end])
		}

		prob, err := v.processChunk(chunk)
		if err != nil {
			return nil, err
		}

		currentSec := float64(i) / float64(v.config.SampleRate)
		if prob >= v.config.Threshold {
			if segmentStart < 0 {
				segmentStart = currentSec - padSec
				if segmentStart < 0 {
					segmentStart = 0
				}
			}
			lastVoicedEnd = currentSec + windowSec
			silenceCount = 0
		} else if segmentStart >= 0 {
			silenceCount++
			if silenceCount >= minSilenceWindows {
				closeSegment()
				silenceCount = 0
			}
		}
	}

	if segmentStart >= 0 {
		closeSegment()
	}

	log.Printf("SileroVAD: detected %d voice segments", len(segments))
	return segments, nil
}

// Close освобождает ресурсы
func (v *SileroVAD) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session != nil {
		v.session.Destroy()
		v.session = nil
	}
	v.initialized = false
}
