package ai

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// MelConfig конфигурация фреймового анализа
type MelConfig struct {
	SampleRate int
	NMels      int
	NMFCC      int
	HopLength  int // обычно SampleRate / 100 (10ms)
	WinLength  int // обычно SampleRate / 40 (25ms)
	NFFT       int
}

// DefaultMelConfig возвращает параметры совместимые с WeSpeaker (80 mels, 16kHz)
func DefaultMelConfig() MelConfig {
	return MelConfig{
		SampleRate: 16000,
		NMels:      80,
		NMFCC:      13,
		HopLength:  160, // 10ms
		WinLength:  400, // 25ms
		NFFT:       512,
	}
}

// MelProcessor вычисляет фреймовые признаки: log-mel спектрограмму,
// MFCC и RMS энергию. Фреймы левовыровненные (без центрирования)
type MelProcessor struct {
	config     MelConfig
	melFilters [][]float64
	window     []float64
	fft        *fourier.FFT
}

// NewMelProcessor создаёт новый процессор
func NewMelProcessor(config MelConfig) *MelProcessor {
	return &MelProcessor{
		config:     config,
		melFilters: createMelFilterbank(config.NFFT, config.NMels, config.SampleRate),
		window:     createHannWindow(config.WinLength),
		fft:        fourier.NewFFT(config.NFFT),
	}
}

// NumFrames возвращает количество фреймов для данного количества сэмплов
func (p *MelProcessor) NumFrames(numSamples int) int {
	if numSamples < p.config.WinLength {
		if numSamples == 0 {
			return 0
		}
		return 1
	}
	return (numSamples-p.config.WinLength)/p.config.HopLength + 1
}

// FrameDuration возвращает шаг фрейма в секундах
func (p *MelProcessor) FrameDuration() float64 {
	return float64(p.config.HopLength) / float64(p.config.SampleRate)
}

// Compute вычисляет log-mel спектрограмму, MFCC и RMS энергию по фреймам
func (p *MelProcessor) Compute(samples []float32) (melSpec, mfcc [][]float32, energy []float32) {
	numFrames := p.NumFrames(len(samples))

	melSpec = make([][]float32, numFrames)
	mfcc = make([][]float32, numFrames)
	energy = make([]float32, numFrames)

	frameData := make([]float64, p.config.NFFT)
	powerSpec := make([]float64, p.config.NFFT/2+1)

	for frame := 0; frame < numFrames; frame++ {
		frameStart := frame * p.config.HopLength

		// Извлекаем фрейм с оконной функцией, хвост дополняется нулями
		var sumSq float64
		var count int
		for i := 0; i < p.config.NFFT; i++ {
			frameData[i] = 0
		}
		for i := 0; i < p.config.WinLength; i++ {
			sampleIdx := frameStart + i
			if sampleIdx < len(samples) {
				s := float64(samples[sampleIdx])
				frameData[i] = s * p.window[i]
				sumSq += s * s
				count++
			}
		}

		// RMS энергия без оконной функции
		if count > 0 {
			energy[frame] = float32(math.Sqrt(sumSq / float64(count)))
		}

		// FFT -> power spectrum (только положительные частоты)
		coeffs := p.fft.Coefficients(nil, frameData)
		for i := 0; i <= p.config.NFFT/2; i++ {
			re := real(coeffs[i])
			im := imag(coeffs[i])
			powerSpec[i] = re*re + im*im
		}

		// Mel-фильтры + log с клампингом
		melSpec[frame] = make([]float32, p.config.NMels)
		for m := 0; m < p.config.NMels; m++ {
			sum := float64(0)
			for k := 0; k < len(powerSpec); k++ {
				sum += powerSpec[k] * p.melFilters[m][k]
			}
			if sum < 1e-9 {
				sum = 1e-9
			}
			melSpec[frame][m] = float32(math.Log(sum))
		}

		// MFCC через DCT-II от log-mel
		mfcc[frame] = p.computeMFCC(melSpec[frame])
	}

	return melSpec, mfcc, energy
}

// computeMFCC вычисляет DCT-II от log-mel фрейма
func (p *MelProcessor) computeMFCC(logMel []float32) []float32 {
	n := len(logMel)
	out := make([]float32, p.config.NMFCC)
	for c := 0; c < p.config.NMFCC && c < n; c++ {
		var sum float64
		for m := 0; m < n; m++ {
			sum += float64(logMel[m]) * math.Cos(math.Pi*float64(c)*(float64(m)+0.5)/float64(n))
		}
		out[c] = float32(sum)
	}
	return out
}

// MelBinCenterHz возвращает центральную частоту mel-фильтра m в герцах
// Используется для грубой оценки доминантной частоты голоса
func (p *MelProcessor) MelBinCenterHz(m int) float64 {
	fMax := float64(p.config.SampleRate) / 2.0
	mMax := hzToMel(fMax)
	mel := float64(m+1) * mMax / float64(p.config.NMels+1)
	return melToHz(mel)
}

// hzToMel преобразует Hz в mel (HTK formula)
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz преобразует mel в Hz
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// createMelFilterbank создаёт mel-фильтры
// Реализация совместима с torchaudio/librosa (работает в Hz, не bin indices)
func createMelFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	numBins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2.0

	// Частоты для каждого FFT bin
	allFreqs := make([]float64, numBins)
	for i := 0; i < numBins; i++ {
		allFreqs[i] = float64(i) * fMax / float64(numBins-1)
	}

	// Mel points (nMels + 2 точек: left edge, centers, right edge)
	mMin := hzToMel(0)
	mMax := hzToMel(fMax)
	fPts := make([]float64, nMels+2)
	for i := 0; i < nMels+2; i++ {
		mel := mMin + float64(i)*(mMax-mMin)/float64(nMels+1)
		fPts[i] = melToHz(mel)
	}

	fDiff := make([]float64, nMels+1)
	for i := 0; i < nMels+1; i++ {
		fDiff[i] = fPts[i+1] - fPts[i]
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, numBins)

		for k := 0; k < numBins; k++ {
			freq := allFreqs[k]

			lower := (freq - fPts[m]) / fDiff[m]
			upper := (fPts[m+2] - freq) / fDiff[m+1]

			val := math.Min(lower, upper)
			if val < 0 {
				val = 0
			}
			filters[m][k] = val
		}
	}

	return filters
}

// createHannWindow создаёт окно Ханна
func createHannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}
