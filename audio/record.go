package audio

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// Recorder захватывает аудио с микрофона для записи enrollment сэмплов
type Recorder struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	deviceID *malgo.DeviceID

	dataChan chan []float32
	mu       sync.Mutex
	running  bool
}

// NewRecorder создаёт новый Recorder
func NewRecorder() (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	return &Recorder{
		ctx:      ctx,
		dataChan: make(chan []float32, 256),
	}, nil
}

// ListInputDevices возвращает имена доступных устройств захвата
func (r *Recorder) ListInputDevices() ([]string, error) {
	devices, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	names := make([]string, len(devices))
	for i, dev := range devices {
		names[i] = dev.Name()
	}
	return names, nil
}

// SetDeviceByName выбирает устройство захвата по имени (частичное совпадение)
// Пустое имя означает устройство по умолчанию
func (r *Recorder) SetDeviceByName(name string) error {
	if name == "" {
		r.deviceID = nil
		return nil
	}

	devices, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return err
	}

	nameLower := strings.ToLower(name)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name()), nameLower) {
			id := dev.ID
			r.deviceID = &id
			return nil
		}
	}
	return fmt.Errorf("device not found: %s", name)
}

// Record записывает аудио с микрофона указанную длительность (в секундах)
// Возвращает моно сэмплы float32 с частотой PipelineSampleRate
// Прерывается по отмене контекста, возвращая уже записанное
func (r *Recorder) Record(ctx context.Context, durationSec float64) ([]float32, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("already recording")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(PipelineSampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if r.deviceID != nil {
		deviceConfig.Capture.DeviceID = r.deviceID.Pointer()
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		sampleCount := int(framecount)
		if len(pInputSamples) != sampleCount*4 {
			return
		}

		samples := make([]float32, sampleCount)
		for i := 0; i < sampleCount; i++ {
			bits := uint32(pInputSamples[i*4]) | uint32(pInputSamples[i*4+1])<<8 |
				uint32(pInputSamples[i*4+2])<<16 | uint32(pInputSamples[i*4+3])<<24
			samples[i] = math.Float32frombits(bits)
		}

		select {
		case r.dataChan <- samples:
		default:
			// Буфер полон - теряем кадр, но не блокируем audio callback
		}
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	r.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}
	log.Printf("[Recorder] Capture started (%.1fs)", durationSec)

	defer func() {
		device.Stop()
		device.Uninit()
		r.device = nil
	}()

	target := int(durationSec * float64(PipelineSampleRate))
	recorded := make([]float32, 0, target)

	for len(recorded) < target {
		select {
		case <-ctx.Done():
			log.Printf("[Recorder] Capture cancelled after %.1fs",
				float64(len(recorded))/float64(PipelineSampleRate))
			return recorded, ctx.Err()
		case chunk := <-r.dataChan:
			recorded = append(recorded, chunk...)
		}
	}

	return recorded[:target], nil
}

// Close освобождает аудио контекст
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx != nil {
		r.ctx.Uninit()
		r.ctx.Free()
		r.ctx = nil
	}
}
