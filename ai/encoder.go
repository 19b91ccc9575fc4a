package ai

import (
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EmbeddingDim размерность вектора голосовых характеристик
const EmbeddingDim = 512

// minEmbeddingWindowSec минимальное окно для извлечения эмбеддинга (сек)
// Окна короче рецептивного поля модели дают ErrEmbeddingExtractionFailed
const minEmbeddingWindowSec = 0.1

// EmbeddingExtractor извлекает вектор голосовых характеристик из аудио
// Реализации должны быть безопасны для конкурентных вызовов на
// непересекающихся участках одного файла (read-only доступ)
type EmbeddingExtractor interface {
	// Encode извлекает эмбеддинг из моно сэмплов (16kHz)
	Encode(samples []float32) ([]float32, error)

	// Dim возвращает размерность векторов
	Dim() int

	// Close освобождает ресурсы
	Close()
}

// ONNXEncoderConfig конфигурация ONNX энкодера голоса
type ONNXEncoderConfig struct {
	ModelPath string
	Mel       MelConfig
}

// DefaultONNXEncoderConfig возвращает конфигурацию для WeSpeaker-совместимых
// моделей (80 mels, 16kHz)
func DefaultONNXEncoderConfig(modelPath string) ONNXEncoderConfig {
	return ONNXEncoderConfig{
		ModelPath: modelPath,
		Mel:       DefaultMelConfig(),
	}
}

// ONNXSpeakerEncoder преобразует аудио в вектор через ONNX модель
// (WeSpeaker ResNet34 и совместимые)
type ONNXSpeakerEncoder struct {
	config       ONNXEncoderConfig
	session      *ort.DynamicAdvancedSession
	melProcessor *MelProcessor
	dim          int
	mu           sync.Mutex
	initialized  bool
}

// NewONNXSpeakerEncoder создаёт новый энкодер
func NewONNXSpeakerEncoder(config ONNXEncoderConfig) (*ONNXSpeakerEncoder, error) {
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}

	if err := initONNXRuntime(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	encoder := &ONNXSpeakerEncoder{
		config:       config,
		melProcessor: NewMelProcessor(config.Mel),
		dim:          EmbeddingDim,
	}

	if err := encoder.loadModel(); err != nil {
		return nil, err
	}

	return encoder, nil
}

func (e *ONNXSpeakerEncoder) loadModel() error {
	inputInfo, outputInfo, err := ort.GetInputOutputInfo(e.config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to get model info: %w", err)
	}

	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		e.config.ModelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	e.session = session
	e.initialized = true
	return nil
}

// Encode извлекает эмбеддинг из аудио сэмплов
// Модель принимает log-mel спектрограмму [1, numFrames, nMels]
func (e *ONNXSpeakerEncoder) Encode(samples []float32) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, fmt.Errorf("encoder not initialized")
	}

	minSamples := int(minEmbeddingWindowSec * float64(e.config.Mel.SampleRate))
	if len(samples) < minSamples {
		return nil, fmt.Errorf("%w: window too short (%d samples, need %d)",
			ErrEmbeddingExtractionFailed, len(samples), minSamples)
	}

	melSpec, _, _ := e.melProcessor.Compute(samples)
	numFrames := len(melSpec)
	nMels := e.config.Mel.NMels

	flatInput := make([]float32, numFrames*nMels)
	for t := 0; t < numFrames; t++ {
		copy(flatInput[t*nMels:], melSpec[t])
	}

	inputShape := ort.NewShape(1, int64(numFrames), int64(nMels))
	inputTensor, err := ort.NewTensor(inputShape, flatInput)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("%w: inference: %v", ErrEmbeddingExtractionFailed, err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	embedding := outputs[0].(*ort.Tensor[float32]).GetData()

	// Нормализуем и копируем: outputTensor будет уничтожен
	result := NormalizeVector(embedding)
	if len(result) > 0 {
		e.dim = len(result)
	}

	return result, nil
}

// Dim возвращает размерность эмбеддинга
func (e *ONNXSpeakerEncoder) Dim() int {
	return e.dim
}

// Close освобождает ресурсы
func (e *ONNXSpeakerEncoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.initialized = false
}

// NormalizeVector возвращает копию вектора нормированную до единичной длины
func NormalizeVector(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	norm := math.Sqrt(sumSq)
	if norm < 1e-6 {
		copy(out, v)
		return out
	}

	for i, x := range v {
		out[i] = x / float32(norm)
	}
	return out
}
