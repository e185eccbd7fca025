package tasks

import (
	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
)

// selector picks the index of one candidate, or -1.
type selector func(candidates []*models.Entity) int

func byTitle(title string) selector {
	key := matching.TitleKey(title)
	return func(candidates []*models.Entity) int {
		if key == "" {
			return -1
		}
		for i, c := range candidates {
			if matching.TitleKey(c.Title) == key {
				return i
			}
		}
		return -1
	}
}

func (e *ListEngine) byPattern(pattern string) selector {
	return func(candidates []*models.Entity) int {
		return e.resolver.Resolve(pattern, titlesOf(candidates))
	}
}

func byIndex(index int) selector {
	return func(candidates []*models.Entity) int {
		return matching.ByIndex(index, len(candidates))
	}
}

func ofKind(kind models.Kind, candidates []*models.Entity) []*models.Entity {
	var out []*models.Entity
	for _, c := range candidates {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
