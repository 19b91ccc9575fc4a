package ai

import "sort"

// buildTimeline собирает финальный таймлайн из кластеров
// Один Speaker на кластер; сегменты выводятся из исходных голосовых
// сегментов каждого эмбеддинга и сортируются по Start независимо от
// порядка обхода кластеров
func buildTimeline(clusters []SpeakerCluster, segmentByStart map[float64]VoiceSegment, features *AudioFeatures, mel *MelProcessor) ([]Speaker, []SpeakerSegment) {
	peak := peakEnergy(features)

	var speakers []Speaker
	var segments []SpeakerSegment

	for _, cluster := range clusters {
		speaker := Speaker{
			ID:                cluster.ID,
			AverageConfidence: cluster.Confidence,
		}

		for _, emb := range cluster.Embeddings {
			seg, ok := segmentByStart[emb.Timestamp]
			if !ok {
				continue
			}

			segments = append(segments, SpeakerSegment{
				SpeakerID:  cluster.ID,
				Start:      seg.Start,
				End:        seg.End(),
				Confidence: cluster.Confidence,
				AudioLevel: segmentAudioLevel(features, seg, peak),
			})

			speaker.TotalSpeakingTime += seg.Duration
			speaker.SegmentCount++
		}

		speaker.Characteristics = estimateCharacteristics(features, mel, cluster, segmentByStart, speaker)
		speakers = append(speakers, speaker)
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	return speakers, segments
}

// peakEnergy возвращает максимальную RMS энергию фрейма записи
func peakEnergy(features *AudioFeatures) float32 {
	var peak float32
	for _, e := range features.Energy {
		if e > peak {
			peak = e
		}
	}
	return peak
}

// segmentAudioLevel оценивает громкость сегмента (0.0-1.0)
// как среднюю энергию его фреймов относительно пика записи
// Независима от уверенности кластеризации
func segmentAudioLevel(features *AudioFeatures, seg VoiceSegment, peak float32) float32 {
	if peak == 0 || features.FrameDuration == 0 {
		return 0
	}

	startFrame := int(seg.Start / features.FrameDuration)
	endFrame := int(seg.End() / features.FrameDuration)
	if endFrame > features.NumFrames() {
		endFrame = features.NumFrames()
	}
	if startFrame >= endFrame {
		return 0
	}

	var sum float32
	for f := startFrame; f < endFrame; f++ {
		sum += features.Energy[f]
	}
	level := sum / float32(endFrame-startFrame) / peak

	if level > 1 {
		level = 1
	}
	return level
}

// estimateCharacteristics оценивает вспомогательные характеристики голоса:
// доминантную частоту по спектрограмме и темп речи
// Грубая эвристика, не влияет на кластеризацию
func estimateCharacteristics(features *AudioFeatures, mel *MelProcessor, cluster SpeakerCluster, segmentByStart map[float64]VoiceSegment, speaker Speaker) *SpeakerCharacteristics {
	if mel == nil || len(features.Spectrogram) == 0 {
		return nil
	}

	var pitchSum, pitchMin, pitchMax float64
	var frames int

	for _, emb := range cluster.Embeddings {
		seg, ok := segmentByStart[emb.Timestamp]
		if !ok {
			continue
		}

		startFrame := int(seg.Start / features.FrameDuration)
		endFrame := int(seg.End() / features.FrameDuration)
		if endFrame > len(features.Spectrogram) {
			endFrame = len(features.Spectrogram)
		}

		for f := startFrame; f < endFrame; f++ {
			bin := dominantBin(features.Spectrogram[f])
			hz := mel.MelBinCenterHz(bin)

			if frames == 0 {
				pitchMin, pitchMax = hz, hz
			} else {
				if hz < pitchMin {
					pitchMin = hz
				}
				if hz > pitchMax {
					pitchMax = hz
				}
			}
			pitchSum += hz
			frames++
		}
	}

	if frames == 0 {
		return nil
	}

	chars := &SpeakerCharacteristics{
		PitchMeanHz:  float32(pitchSum / float64(frames)),
		PitchRangeHz: float32(pitchMax - pitchMin),
	}
	if speaker.TotalSpeakingTime > 0 {
		chars.SpeakingRate = float32(float64(speaker.SegmentCount) / speaker.TotalSpeakingTime * 60.0)
	}

	return chars
}

// dominantBin возвращает индекс mel-фильтра с максимальной энергией
func dominantBin(frame []float32) int {
	best := 0
	for i, v := range frame {
		if v > frame[best] {
			best = i
		}
	}
	return best
}
