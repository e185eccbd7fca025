package matching

// Default thresholds for near-duplicate detection.
const (
	DuplicateThreshold = 0.75
	AutoUseThreshold   = 0.85
)

// SimilarityScorer rates how alike two titles are, from 0 to 1.
type SimilarityScorer interface {
	Score(a, b string) float64
}

// Thresholds decide what a similarity score means.
type Thresholds struct {
	Duplicate float64
	AutoUse   float64
}

// DefaultThresholds returns the 0.75 / 0.85 pair.
func DefaultThresholds() Thresholds {
	return Thresholds{Duplicate: DuplicateThreshold, AutoUse: AutoUseThreshold}
}

// IsDuplicate reports whether score marks a probable duplicate (strictly above the threshold).
func (t Thresholds) IsDuplicate(score float64) bool { return score > t.Duplicate }

// ShouldAutoUse reports whether a duplicate is close enough to reuse without asking.
func (t Thresholds) ShouldAutoUse(score float64) bool { return score >= t.AutoUse }

// Jaccard scores titles by the Jaccard index of their semantic token sets.
type Jaccard struct {
	normalizer TextNormalizer
}

// NewJaccard creates a [Jaccard] scorer. A nil normalizer uses [RussianNormalizer].
func NewJaccard(n TextNormalizer) *Jaccard {
	if n == nil {
		n = RussianNormalizer{}
	}
	return &Jaccard{normalizer: n}
}

// Score returns |A∩B| / |A∪B|, or 0 when both titles have no tokens.
func (j *Jaccard) Score(a, b string) float64 {
	return jaccard(setOf(j.normalizer.SemanticTokens(a)...), setOf(j.normalizer.SemanticTokens(b)...))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	unionSize := len(a) + len(b) - inter
	return float64(inter) / float64(unionSize)
}

// BestMatch scores title against every candidate and returns the index and score of
// the highest-scoring one strictly above threshold. Earlier candidates win ties.
// It returns -1 when nothing qualifies.
func BestMatch(scorer SimilarityScorer, title string, candidates []string, threshold float64) (int, float64) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		score := scorer.Score(title, c)
		if score > threshold && (best < 0 || score > bestScore) {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}
