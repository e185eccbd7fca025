package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Resolver picks the stored title an imprecise pattern refers to.
type Resolver struct {
	normalizer TextNormalizer
}

// NewResolver creates a [Resolver]. A nil normalizer uses [RussianNormalizer].
func NewResolver(n TextNormalizer) *Resolver {
	if n == nil {
		n = RussianNormalizer{}
	}
	return &Resolver{normalizer: n}
}

type scored struct {
	index    int
	overlap  int
	distance int
	length   int
}

// Resolve returns the index of the title pattern refers to, or -1.
//
// A case-insensitive exact match wins. Otherwise candidates are ranked by token overlap
// (more is better), then edit distance to the cleaned pattern, then title length, keeping
// candidate order on ties. Candidates sharing no token and no substring with the pattern
// are skipped. When nothing ranks, a substring match in either direction is accepted.
func (r *Resolver) Resolve(pattern string, titles []string) int {
	cleaned := CleanPattern(pattern)
	if cleaned == "" {
		return -1
	}

	patternKey, cleanedKey := TitleKey(pattern), TitleKey(cleaned)
	for i, title := range titles {
		if key := TitleKey(title); key == patternKey || key == cleanedKey {
			return i
		}
	}

	return r.Rank(pattern, titles)
}

// Rank runs the scoring and substring fallback steps of [Resolver.Resolve] without the
// exact-match shortcut.
func (r *Resolver) Rank(pattern string, titles []string) int {
	cleaned := strings.ToLower(CleanPattern(pattern))
	patternTokens := setOf(r.normalizer.Tokens(pattern)...)

	var ranked []scored
	for i, title := range titles {
		lower := strings.ToLower(title)

		overlap := 0
		for t := range setOf(r.normalizer.Tokens(title)...) {
			if _, ok := patternTokens[t]; ok {
				overlap++
			}
		}

		substring := cleaned != "" && strings.Contains(lower, cleaned)
		for t := range patternTokens {
			if utf8.RuneCountInString(t) > 2 && strings.Contains(lower, t) {
				substring = true
				break
			}
		}

		if len(patternTokens) > 0 && overlap == 0 && !substring {
			continue
		}

		distance := 0
		if cleaned != "" {
			distance = levenshtein.ComputeDistance(lower, cleaned)
		}
		ranked = append(ranked, scored{
			index:    i,
			overlap:  overlap,
			distance: distance,
			length:   utf8.RuneCountInString(lower),
		})
	}

	if len(ranked) == 0 {
		if cleaned == "" {
			return -1
		}
		for i, title := range titles {
			lower := strings.ToLower(title)
			if strings.Contains(lower, cleaned) || strings.Contains(cleaned, lower) {
				return i
			}
		}
		return -1
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.overlap != b.overlap {
			return a.overlap > b.overlap
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.length < b.length
	})
	return ranked[0].index
}

// ByIndex converts a 1-based ordinal into a slice index over n items, or -1 when
// the ordinal is out of range.
func ByIndex(ordinal, n int) int {
	if ordinal < 1 || ordinal > n {
		return -1
	}
	return ordinal - 1
}
