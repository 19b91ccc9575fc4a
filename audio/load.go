package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// PipelineSampleRate частота дискретизации на которой работает весь
// пайплайн диаризации (16kHz mono)
const PipelineSampleRate = 16000

// ErrUnsupportedFormat возвращается для файлов с неизвестным расширением
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// LoadMono загружает аудио файл (WAV или MP3) и возвращает моно сэмплы
// float32 [-1.0, 1.0] с частотой PipelineSampleRate
func LoadMono(filePath string) ([]float32, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var samples []float32
	var sourceRate int

	switch ext {
	case ".wav":
		reader, err := NewWAVReader(filePath)
		if err != nil {
			return nil, err
		}
		defer reader.Close()

		samples, err = reader.ReadAllMono()
		if err != nil {
			return nil, err
		}
		sourceRate = reader.SampleRate()
	case ".mp3":
		reader, err := NewMP3Reader(filePath)
		if err != nil {
			return nil, err
		}
		defer reader.Close()

		samples, err = reader.ReadAllMono()
		if err != nil {
			return nil, err
		}
		sourceRate = reader.SampleRate()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	return Resample(samples, sourceRate, PipelineSampleRate), nil
}

// Resample выполняет линейную передискретизацию
// Для fromRate == toRate возвращает исходный слайс без копирования
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := float32(srcPos - float64(idx))

		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[idx]
		}
	}

	return out
}
