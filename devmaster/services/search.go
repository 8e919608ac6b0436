package services

import (
	"github.com/devmasterhq/devmaster/devmaster/database/models"
	"github.com/sahilm/fuzzy"
)

type challengeSource []*models.Challenge

func (c challengeSource) String(i int) string { return c[i].Title }
func (c challengeSource) Len() int            { return len(c) }

// filterByTitle fuzzy-matches the query against challenge titles,
// best match first.
func filterByTitle(all []*models.Challenge, query string) []*models.Challenge {
	matches := fuzzy.FindFrom(query, challengeSource(all))
	out := make([]*models.Challenge, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out
}
