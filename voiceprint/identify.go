package voiceprint

import (
	"context"
	"fmt"
	"log"

	"voxnote/ai"
)

// ClusterDiarizer диаризация с доступом к кластерам эмбеддингов,
// число спикеров определяет кластеризация. Реализуется ai.Diarizer
type ClusterDiarizer interface {
	DiarizeClustersAuto(ctx context.Context, audioPath string) (*ai.DiarizationResult, []ai.SpeakerCluster, error)
}

// Identifier сопоставляет спикеров свежей диаризации с известными профилями
type Identifier struct {
	diarizer  ClusterDiarizer
	threshold float32
}

// NewIdentifier создаёт идентификатор
// threshold <= 0 заменяется на ThresholdMedium
func NewIdentifier(diarizer ClusterDiarizer, threshold float32) *Identifier {
	if threshold <= 0 {
		threshold = ThresholdMedium
	}
	return &Identifier{diarizer: diarizer, threshold: threshold}
}

// IdentifySpeakers диаризует запись и сопоставляет каждый кластер с профилями
// Центроиды кластеров сравниваются по косинусному сходству; спикер получает
// профиль с максимальным сходством строго выше порога. Спикеры без
// подходящего профиля попадают в UnidentifiedSpeakers, это не ошибка
func (id *Identifier) IdentifySpeakers(ctx context.Context, audioPath string, profiles []Profile) (*IdentificationResult, error) {
	// Количество спикеров определяет кластеризация, не конфигурация:
	// навязанное число разрезает или склеивает незнакомые голоса
	result, clusters, err := id.diarizer.DiarizeClustersAuto(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("diarization failed: %w", err)
	}

	identification := &IdentificationResult{
		AudioPath:   audioPath,
		Diarization: result,
	}

	segmentsBySpeaker := make(map[string][]ai.SpeakerSegment)
	for _, seg := range result.Segments {
		segmentsBySpeaker[seg.SpeakerID] = append(segmentsBySpeaker[seg.SpeakerID], seg)
	}

	matched := make(map[string]bool)
	for _, cluster := range clusters {
		match := FindBestMatch(cluster.Centroid.Vector, profiles, id.threshold)
		if match == nil {
			continue
		}

		identification.IdentifiedSpeakers = append(identification.IdentifiedSpeakers, IdentifiedSpeaker{
			SpeakerID:  cluster.ID,
			Profile:    *match.Profile,
			Confidence: match.Similarity,
			Segments:   segmentsBySpeaker[cluster.ID],
		})
		matched[cluster.ID] = true

		log.Printf("[VoicePrint] %s identified as %s (similarity=%.2f)",
			cluster.ID, match.Profile.Name, match.Similarity)
	}

	for _, speaker := range result.Speakers {
		if !matched[speaker.ID] {
			identification.UnidentifiedSpeakers = append(identification.UnidentifiedSpeakers, speaker)
		}
	}

	log.Printf("[VoicePrint] Identification: %d of %d speakers matched",
		len(identification.IdentifiedSpeakers), result.SpeakerCount)

	return identification, nil
}
