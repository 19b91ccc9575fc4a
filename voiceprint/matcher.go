package voiceprint

import (
	"sort"

	"voxnote/ai"
)

// Matcher выполняет поиск совпадений эмбеддингов с профилями
type Matcher struct {
	store *Store
}

// NewMatcher создаёт новый matcher
func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// FindBestMatch ищет лучшее совпадение для embedding среди набора профилей
// Возвращает nil если ни один профиль не превосходит threshold строго
// Совпадение максимум с одним профилем: best-match, а не первый выше порога
func FindBestMatch(embedding []float32, profiles []Profile, threshold float32) *MatchResult {
	var best *MatchResult

	for i := range profiles {
		similarity := ai.CosineSimilarity(embedding, profiles[i].Embedding)
		if similarity <= threshold {
			continue
		}
		if best == nil || similarity > best.Similarity {
			profileCopy := profiles[i]
			best = &MatchResult{
				Profile:    &profileCopy,
				Similarity: similarity,
				Confidence: GetConfidence(similarity),
			}
		}
	}

	return best
}

// FindAllMatches возвращает все совпадения выше порога, по убыванию similarity
func (m *Matcher) FindAllMatches(embedding []float32, threshold float32) []MatchResult {
	if m.store == nil {
		return nil
	}

	profiles := m.store.GetAll()
	var matches []MatchResult

	for i := range profiles {
		similarity := ai.CosineSimilarity(embedding, profiles[i].Embedding)
		if similarity >= threshold {
			profileCopy := profiles[i]
			matches = append(matches, MatchResult{
				Profile:    &profileCopy,
				Similarity: similarity,
				Confidence: GetConfidence(similarity),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}
