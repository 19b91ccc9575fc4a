// Package ai предоставляет пайплайн диаризации спикеров:
// извлечение признаков, VAD, speaker embeddings, кластеризация
// и построение таймлайна
package ai

import "time"

// AudioFeatures признаки одной записи, вычисленные один раз за вызов пайплайна
// Живёт только в рамках одного вызова, никогда не сохраняется
type AudioFeatures struct {
	Samples       []float32   // исходные моно сэмплы (16kHz)
	SampleRate    int         // частота дискретизации
	Duration      float64     // длительность записи (сек)
	FrameDuration float64     // шаг фрейма (сек)
	Spectrogram   [][]float32 // log-mel спектрограмма [frame][mel]
	MFCC          [][]float32 // MFCC коэффициенты [frame][coeff]
	Energy        []float32   // RMS энергия каждого фрейма
}

// NumFrames возвращает количество фреймов признаков
func (f *AudioFeatures) NumFrames() int {
	return len(f.Energy)
}

// VoiceSegment непрерывный участок голосовой активности
type VoiceSegment struct {
	Start    float64 `json:"start"`    // начало (сек)
	Duration float64 `json:"duration"` // длительность (сек), всегда > 0
}

// End возвращает время окончания сегмента
func (s VoiceSegment) End() float64 {
	return s.Start + s.Duration
}

// SpeakerEmbedding вектор голосовых характеристик одного сегмента
// Все эмбеддинги одного вызова пайплайна имеют одинаковую размерность
type SpeakerEmbedding struct {
	Vector    []float32 `json:"vector"`
	Timestamp float64   `json:"timestamp"` // начало исходного сегмента (сек)
}

// SpeakerCluster группа эмбеддингов одного спикера
// Centroid - поэлементное среднее векторов всех участников
type SpeakerCluster struct {
	ID         string             `json:"id"`
	Embeddings []SpeakerEmbedding `json:"embeddings"`
	Centroid   SpeakerEmbedding   `json:"centroid"`
	Confidence float32            `json:"confidence"`
}

// SpeakerCharacteristics вспомогательные оценки голоса спикера
// Приблизительные значения, не влияют на корректность диаризации
type SpeakerCharacteristics struct {
	PitchMeanHz  float32 `json:"pitchMeanHz"`  // средняя доминантная частота
	PitchRangeHz float32 `json:"pitchRangeHz"` // разброс доминантной частоты
	SpeakingRate float32 `json:"speakingRate"` // сегментов речи в минуту
}

// Speaker обнаруженный спикер (один на кластер)
type Speaker struct {
	ID                string                  `json:"id"` // speaker_0, speaker_1, ...
	Name              string                  `json:"name,omitempty"`
	TotalSpeakingTime float64                 `json:"totalSpeakingTime"`
	SegmentCount      int                     `json:"segmentCount"`
	AverageConfidence float32                 `json:"averageConfidence"`
	Characteristics   *SpeakerCharacteristics `json:"characteristics,omitempty"`
}

// SpeakerSegment атомарная единица выходного таймлайна
// Инвариант: End > Start; SpeakerID ссылается на Speaker в том же результате
type SpeakerSegment struct {
	SpeakerID  string  `json:"speakerId"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text,omitempty"` // заполняется только после выравнивания транскрипции
	Confidence float32 `json:"confidence"`
	AudioLevel float32 `json:"audioLevel"` // оценка громкости 0.0-1.0
}

// TranscriptSegment сегмент транскрипции от внешнего STT движка
type TranscriptSegment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float32 `json:"confidence"`
}

// DiarizationResult итоговый результат диаризации
// Segments отсортированы по возрастанию Start; SpeakerCount == len(Speakers)
// Confidence - взвешенное по длительности среднее уверенностей сегментов
type DiarizationResult struct {
	AudioPath      string           `json:"audioPath"`
	TotalDuration  float64          `json:"totalDuration"`
	SpeakerCount   int              `json:"speakerCount"`
	Speakers       []Speaker        `json:"speakers"`
	Segments       []SpeakerSegment `json:"segments"`
	Confidence     float32          `json:"confidence"`
	ProcessingTime time.Duration    `json:"processingTime"`
}
