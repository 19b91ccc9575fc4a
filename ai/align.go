package ai

import (
	"sort"
	"strings"
)

// AlignTranscript накладывает сегменты транскрипции на таймлайн диаризации
// Границы и принадлежность спикерам не меняются: каждому сегменту спикера
// присваивается текст всех пересекающихся по времени сегментов транскрипции
// Сегменты без пересечений возвращаются без изменений
func AlignTranscript(speakerSegments []SpeakerSegment, transcript []TranscriptSegment) []SpeakerSegment {
	if len(transcript) == 0 {
		return speakerSegments
	}

	// Текст склеивается в хронологическом порядке
	ordered := make([]TranscriptSegment, len(transcript))
	copy(ordered, transcript)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	aligned := make([]SpeakerSegment, len(speakerSegments))
	copy(aligned, speakerSegments)

	for i := range aligned {
		seg := &aligned[i]

		var parts []string
		var weightedConf, overlapTotal float64

		for _, ts := range ordered {
			overlap := overlapDuration(seg.Start, seg.End, ts.Start, ts.End)
			if overlap <= 0 {
				continue
			}

			text := strings.TrimSpace(ts.Text)
			if text != "" {
				parts = append(parts, text)
			}
			weightedConf += float64(ts.Confidence) * overlap
			overlapTotal += overlap
		}

		if overlapTotal == 0 {
			continue
		}

		seg.Text = strings.Join(parts, " ")

		// Итоговая уверенность не может превышать уверенность диаризации
		transcriptConf := float32(weightedConf / overlapTotal)
		if transcriptConf < seg.Confidence {
			seg.Confidence = transcriptConf
		}
	}

	return aligned
}

func overlapDuration(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	return end - start
}
