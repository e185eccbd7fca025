// Package matching turns free-form titles into comparable forms and resolves
// imprecise references to stored titles.
//
// The package has three parts, each usable on its own:
//   - [TextNormalizer] : tokenization and stemming ([RussianNormalizer] is the default)
//   - [SimilarityScorer] : near-duplicate scoring ([Jaccard] over normalized token sets)
//   - [Resolver] : exact, token overlap, edit distance and substring resolution of a pattern
//
// [TitleKey] produces the case-folded identity key persisted alongside every title.
package matching
