// Package audio предоставляет чтение и запись аудио файлов (WAV/MP3)
// и захват с микрофона. Чистый Go, без FFmpeg.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// WAVReader читает PCM16 WAV файлы
type WAVReader struct {
	file       *os.File
	sampleRate int
	channels   int
	dataOffset int64
	dataSize   int64
}

// NewWAVReader открывает WAV файл для чтения
func NewWAVReader(filePath string) (*WAVReader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	r := &WAVReader{file: file}
	if err := r.parseHeader(); err != nil {
		file.Close()
		return nil, err
	}

	return r, nil
}

// parseHeader разбирает RIFF заголовок и находит fmt/data чанки
func (r *WAVReader) parseHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.file, riff[:]); err != nil {
		return fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return fmt.Errorf("not a WAV file")
	}

	// Идём по чанкам пока не найдём fmt и data
	var haveFmt bool
	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r.file, chunkHeader[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "fmt ":
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(r.file, fmtData); err != nil {
				return fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(fmtData[0:2])
			bitsPerSample := binary.LittleEndian.Uint16(fmtData[14:16])
			if audioFormat != 1 || bitsPerSample != 16 {
				return fmt.Errorf("unsupported WAV format: format=%d, bits=%d (need PCM16)", audioFormat, bitsPerSample)
			}
			r.channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			r.sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			haveFmt = true
		case "data":
			offset, err := r.file.Seek(0, io.SeekCurrent)
			if err != nil {
				return err
			}
			r.dataOffset = offset
			r.dataSize = chunkSize
			// data может идти до fmt, продолжаем пока оба не найдены
			if _, err := r.file.Seek(chunkSize, io.SeekCurrent); err != nil {
				return err
			}
		default:
			// Пропускаем неизвестные чанки (LIST, fact и т.д.)
			if _, err := r.file.Seek(chunkSize, io.SeekCurrent); err != nil {
				return err
			}
		}

		if haveFmt && r.dataSize > 0 {
			break
		}
	}

	if !haveFmt || r.dataSize == 0 {
		return fmt.Errorf("incomplete WAV file: fmt or data chunk missing")
	}
	if r.channels < 1 || r.channels > 2 {
		return fmt.Errorf("unsupported channel count: %d", r.channels)
	}

	return nil
}

// SampleRate возвращает частоту дискретизации
func (r *WAVReader) SampleRate() int {
	return r.sampleRate
}

// Channels возвращает количество каналов
func (r *WAVReader) Channels() int {
	return r.channels
}

// Duration возвращает длительность в секундах
func (r *WAVReader) Duration() float64 {
	samples := r.dataSize / int64(2*r.channels)
	return float64(samples) / float64(r.sampleRate)
}

// ReadAllMono читает весь файл и возвращает моно сэмплы float32 [-1.0, 1.0]
// Для стерео берётся среднее каналов
func (r *WAVReader) ReadAllMono() ([]float32, error) {
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return nil, err
	}

	pcmData := make([]byte, r.dataSize)
	n, err := io.ReadFull(r.file, pcmData)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	pcmData = pcmData[:n]

	frameSize := 2 * r.channels
	numSamples := n / frameSize

	mono := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		var sum float32
		for ch := 0; ch < r.channels; ch++ {
			s := int16(binary.LittleEndian.Uint16(pcmData[i*frameSize+ch*2:]))
			sum += float32(s) / 32768.0
		}
		mono[i] = sum / float32(r.channels)
	}

	return mono, nil
}

// Close закрывает файл
func (r *WAVReader) Close() error {
	return r.file.Close()
}

// WAVWriter потоковый писатель WAV файлов (PCM16)
type WAVWriter struct {
	file           *os.File
	filePath       string
	sampleRate     int
	channels       int
	bitsPerSample  int
	samplesWritten int64
	mu             sync.Mutex
}

// NewWAVWriter создаёт новый WAV writer
func NewWAVWriter(filePath string, sampleRate, channels int) (*WAVWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w := &WAVWriter{
		file:          file,
		filePath:      filePath,
		sampleRate:    sampleRate,
		channels:      channels,
		bitsPerSample: 16,
	}

	// Записываем placeholder header, финальный размер проставит Finalize
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// writeHeader записывает WAV header
func (w *WAVWriter) writeHeader() error {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	byteRate := w.sampleRate * w.channels * w.bitsPerSample / 8
	blockAlign := w.channels * w.bitsPerSample / 8
	dataSize := uint32(w.samplesWritten * int64(w.bitsPerSample/8))

	w.file.WriteString("RIFF")
	binary.Write(w.file, binary.LittleEndian, uint32(36+dataSize))
	w.file.WriteString("WAVE")

	w.file.WriteString("fmt ")
	binary.Write(w.file, binary.LittleEndian, uint32(16)) // chunk size
	binary.Write(w.file, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(w.file, binary.LittleEndian, uint16(w.channels))
	binary.Write(w.file, binary.LittleEndian, uint32(w.sampleRate))
	binary.Write(w.file, binary.LittleEndian, uint32(byteRate))
	binary.Write(w.file, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w.file, binary.LittleEndian, uint16(w.bitsPerSample))

	w.file.WriteString("data")
	binary.Write(w.file, binary.LittleEndian, dataSize)

	return nil
}

// Write записывает float32 семплы в файл (конвертирует в PCM16)
func (w *WAVWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pcmData := make([]byte, len(samples)*2)
	for i, s := range samples {
		// Clamp
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(pcmData[i*2:], uint16(int16(s*32767)))
	}

	if _, err := w.file.Write(pcmData); err != nil {
		return err
	}
	w.samplesWritten += int64(len(samples))
	return nil
}

// SamplesWritten возвращает количество записанных семплов
func (w *WAVWriter) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Finalize завершает запись: обновляет header и закрывает файл
func (w *WAVWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
