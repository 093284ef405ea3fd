package learning

import (
	"sort"

	"github.com/peachstate-cre/propquery/pkg/models"
)

// rankBySimilarity orders records by constraint-shape overlap with the
// current request. Input records arrive newest first; the sort is
// stable, so recency breaks every tie.
func rankBySimilarity(records []models.FeedbackRecord, c *models.Constraints) []models.FeedbackRecord {
	if c == nil || len(records) == 0 {
		return records
	}
	sort.SliceStable(records, func(i, j int) bool {
		return shapeScore(records[i].Constraints, c) > shapeScore(records[j].Constraints, c)
	})
	return records
}

func shapeScore(prior, current *models.Constraints) int {
	if prior == nil {
		return 0
	}
	score := 0
	if prior.Aggregation != models.AggregationNone && prior.Aggregation == current.Aggregation {
		score += 2
	}
	score += 2 * overlap(prior.Counties, current.Counties)
	score += 2 * overlap(prior.PropertyTypes, current.PropertyTypes)
	return score
}

func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}
