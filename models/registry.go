// Package models предоставляет управление моделями диаризации
package models

// ModelKind назначение модели в пайплайне
type ModelKind string

const (
	ModelKindSegmentation ModelKind = "segmentation" // Pyannote сегментация спикеров
	ModelKindEmbedding    ModelKind = "embedding"    // Speaker embedding (WeSpeaker, 3D-Speaker)
	ModelKindVAD          ModelKind = "vad"          // Voice Activity Detection
)

// ModelInfo информация о модели
type ModelInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        ModelKind `json:"kind"`
	Size        string    `json:"size"`
	SizeBytes   int64     `json:"sizeBytes"`
	Description string    `json:"description"`
	Recommended bool      `json:"recommended,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	IsArchive   bool      `json:"isArchive,omitempty"` // Модель в архиве (tar.bz2)
}

// ModelStatus статус модели на устройстве
type ModelStatus string

const (
	ModelStatusNotDownloaded ModelStatus = "not_downloaded"
	ModelStatusDownloading   ModelStatus = "downloading"
	ModelStatusDownloaded    ModelStatus = "downloaded"
	ModelStatusError         ModelStatus = "error"
)

// ModelState состояние модели с информацией
type ModelState struct {
	ModelInfo
	Status   ModelStatus `json:"status"`
	Progress float64     `json:"progress,omitempty"` // 0-100
	Error    string      `json:"error,omitempty"`
	Path     string      `json:"path,omitempty"` // Путь к скачанной модели
}

// Registry реестр доступных моделей
var Registry = []ModelInfo{
	// ===== Сегментация спикеров =====
	{
		ID:          "pyannote-segmentation-3.0",
		Name:        "Pyannote Segmentation 3.0",
		Kind:        ModelKindSegmentation,
		Size:        "5.9 MB",
		SizeBytes:   5_900_000,
		Description: "Сегментация спикеров (pyannote.audio)",
		IsArchive:   true,
		DownloadURL: "https://github.com/k2-fsa/sherpa-onnx/releases/download/speaker-segmentation-models/sherpa-onnx-pyannote-segmentation-3-0.tar.bz2",
	},

	// ===== Speaker embedding =====
	{
		ID:          "3dspeaker-speech-eres2net",
		Name:        "3D-Speaker ERes2Net",
		Kind:        ModelKindEmbedding,
		Size:        "25 MB",
		SizeBytes:   25_000_000,
		Description: "Speaker embedding (3D-Speaker, Alibaba)",
		DownloadURL: "https://github.com/k2-fsa/sherpa-onnx/releases/download/speaker-recongition-models/3dspeaker_speech_eres2net_base_sv_zh-cn_3dspeaker_16k.onnx",
	},
	{
		ID:          "wespeaker-voxceleb-resnet34",
		Name:        "WeSpeaker ResNet34",
		Kind:        ModelKindEmbedding,
		Size:        "26 MB",
		SizeBytes:   26_851_029,
		Description: "Speaker embedding (WeSpeaker ResNet34)",
		Recommended: true,
		DownloadURL: "https://github.com/k2-fsa/sherpa-onnx/releases/download/speaker-recongition-models/wespeaker_en_voxceleb_resnet34.onnx",
	},

	// ===== VAD =====
	{
		ID:          "silero-vad-v5",
		Name:        "Silero VAD v5",
		Kind:        ModelKindVAD,
		Size:        "2.2 MB",
		SizeBytes:   2_327_524,
		Description: "Enterprise-grade Voice Activity Detector (Silero)",
		Recommended: true,
		DownloadURL: "https://github.com/snakers4/silero-vad/raw/master/src/silero_vad/data/silero_vad.onnx",
	},
}

// GetModelByID возвращает модель по ID
func GetModelByID(id string) *ModelInfo {
	for _, m := range Registry {
		if m.ID == id {
			return &m
		}
	}
	return nil
}

// GetModelsByKind возвращает модели определённого назначения
func GetModelsByKind(kind ModelKind) []ModelInfo {
	var result []ModelInfo
	for _, m := range Registry {
		if m.Kind == kind {
			result = append(result, m)
		}
	}
	return result
}

// GetRecommendedModels возвращает рекомендуемые модели
func GetRecommendedModels() []ModelInfo {
	var result []ModelInfo
	for _, m := range Registry {
		if m.Recommended {
			result = append(result, m)
		}
	}
	return result
}
