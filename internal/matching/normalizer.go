package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TextNormalizer splits titles into tokens.
//
// Tokens feed the resolver's overlap score. SemanticTokens are the reduced forms
// compared by a [SimilarityScorer].
type TextNormalizer interface {
	Tokens(text string) []string
	SemanticTokens(text string) []string
}

var folder = cases.Fold()

// TitleKey returns the identity key of a title: NFC normalized, whitespace collapsed
// and Unicode case folded. Two titles are the same title when their keys are equal.
func TitleKey(title string) string {
	s := norm.NFC.String(title)
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

// CleanPattern replaces everything except letters, digits and spaces with a space
// and trims the result.
func CleanPattern(pattern string) string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || r == ' ' {
			return r
		}
		return ' '
	}, pattern)
	return strings.TrimSpace(cleaned)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })
}

// RussianNormalizer is the default [TextNormalizer]. It knows the Russian stopwords,
// synonyms and inflectional suffixes seen in list and task titles.
type RussianNormalizer struct{}

var tokenStopwords = setOf(
	"и", "да", "нет",
	"куплены", "куплено", "куплена", "куплен",
	"готово", "готовы", "готов",
	"выполнено", "выполнены", "выполнен",
	"сделано", "сделаны", "сделан",
)

var semanticStopwords = union(tokenStopwords, setOf(
	"во", "в", "на", "по", "за", "из", "у", "к", "со", "от", "до", "для",
	"это", "эта", "этот", "там",
))

var semanticReplacements = map[string]string{
	"оплатить":       "платить",
	"заплатить":      "платить",
	"оплата":         "платить",
	"платеж":         "платить",
	"квитанция":      "платить",
	"покупку":        "покуп",
	"покупка":        "покуп",
	"покупки":        "покуп",
	"купить":         "покуп",
	"электричество":  "свет",
	"электричества":  "свет",
	"электроэнергия": "свет",
	"электроэнергию": "свет",
	"свет":           "свет",
}

// Checked in order; the first match is stripped.
var semanticSuffixes = []string{
	"иями", "ями", "ами", "иях", "ях", "ев", "ов",
	"его", "ого", "ему", "ому", "ыми", "ими",
}

var trailingVowels = setOf("и", "ы", "а", "я", "е", "ю", "ь", "й")

// Tokens lowercases text, splits it on non-alphanumerics and drops stopwords.
func (RussianNormalizer) Tokens(text string) []string {
	var tokens []string
	for _, p := range splitWords(strings.ToLower(text)) {
		if _, stop := tokenStopwords[p]; stop {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// SemanticTokens additionally folds ё into е, collapses synonyms and strips suffixes.
func (RussianNormalizer) SemanticTokens(text string) []string {
	lowered := strings.ReplaceAll(strings.ToLower(text), "ё", "е")

	var tokens []string
	for _, raw := range splitWords(lowered) {
		if _, stop := semanticStopwords[raw]; stop {
			continue
		}
		reduced := stem(raw)
		if _, stop := semanticStopwords[reduced]; reduced == "" || stop {
			continue
		}
		tokens = append(tokens, reduced)
	}
	return tokens
}

func stem(token string) string {
	base := token
	if r, ok := semanticReplacements[token]; ok {
		base = r
	}

	n := utf8.RuneCountInString(base)
	if n > 4 {
		for _, suffix := range semanticSuffixes {
			if strings.HasSuffix(base, suffix) && n-utf8.RuneCountInString(suffix) >= 4 {
				base = strings.TrimSuffix(base, suffix)
				n = utf8.RuneCountInString(base)
				break
			}
		}
	}

	if n > 4 {
		last, size := utf8.DecodeLastRuneInString(base)
		if _, ok := trailingVowels[string(last)]; ok {
			base = base[:len(base)-size]
		}
	}
	return base
}

func setOf(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func union(a, b map[string]struct{}) map[string]struct{} {
	s := make(map[string]struct{}, len(a)+len(b))
	for w := range a {
		s[w] = struct{}{}
	}
	for w := range b {
		s[w] = struct{}{}
	}
	return s
}
