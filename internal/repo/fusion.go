package repo

import (
	"sort"

	"github.com/xxxsen/supportrag/internal/model"
)

// FuseRanks combines branch rank lists with reciprocal rank fusion. Each
// appearance of an id adds 1/(k+rank) to its score. Ties are broken by id so
// the output is stable. A non-positive limit keeps every id.
func FuseRanks(k, limit int, branches ...[]model.RankedID) []model.FusedID {
	scores := make(map[int64]float64)
	for _, branch := range branches {
		for _, item := range branch {
			scores[item.ID] += 1.0 / float64(k+item.Rank)
		}
	}
	out := make([]model.FusedID, 0, len(scores))
	for id, score := range scores {
		out = append(out, model.FusedID{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
