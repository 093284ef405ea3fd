package learning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/peachstate-cre/propquery/pkg/models"
)

// Reporter renders read-only summaries over the learning store.
type Reporter struct {
	store Store
}

func NewReporter(store Store) *Reporter {
	return &Reporter{store: store}
}

// PerformanceReport renders totals, the status histogram, the average
// iteration count, and the most frequent correction reasons as one
// printable block.
func (r *Reporter) PerformanceReport(ctx context.Context) (string, error) {
	stats, err := r.store.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to build performance report: %w", err)
	}

	var b strings.Builder
	b.WriteString("Query Correction Performance\n")
	b.WriteString("============================\n")
	fmt.Fprintf(&b, "Total queries processed: %d\n", stats.Total)
	fmt.Fprintf(&b, "Average iterations: %.2f\n", stats.AvgIterations)

	if len(stats.StatusHistogram) > 0 {
		b.WriteString("\nOutcomes:\n")
		statuses := make([]string, 0, len(stats.StatusHistogram))
		for s := range stats.StatusHistogram {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Fprintf(&b, "  %-15s %d\n", s, stats.StatusHistogram[s])
		}
	}

	if len(stats.TopCorrectionReasons) > 0 {
		b.WriteString("\nTop correction reasons:\n")
		for i, rc := range stats.TopCorrectionReasons {
			fmt.Fprintf(&b, "  %d. %s (%d)\n", i+1, rc.Reason, rc.Count)
		}
	}

	return b.String(), nil
}

// Recommendations derives textual advice from the recurring correction
// reasons. An empty store yields a single all-clear line.
func (r *Reporter) Recommendations(ctx context.Context) ([]string, error) {
	stats, err := r.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build recommendations: %w", err)
	}

	var recs []string
	seen := map[string]bool{}
	add := func(key, text string) {
		if !seen[key] {
			seen[key] = true
			recs = append(recs, text)
		}
	}

	for _, rc := range stats.TopCorrectionReasons {
		reason := strings.ToLower(rc.Reason)
		switch {
		case strings.Contains(reason, "county"):
			add("county", "County filters are frequently misapplied to property_type; prefer the address->>'county' JSON field when generating SQL.")
		case strings.Contains(reason, "broadened"):
			add("synonyms", "Narrow property-type matches recur; generate the full synonym expression up front instead of a single token.")
		case strings.Contains(reason, "between"):
			add("between", "Price ranges keep arriving as inequality pairs; encode bounded ranges with BETWEEN from the start.")
		case strings.Contains(reason, "count(*)"):
			add("count", "Counting questions often lack a COUNT(*) projection; shape aggregation queries before execution.")
		case strings.Contains(reason, "projection"):
			add("projection", "Listing queries repeatedly omit listing_url, address, or zoning; include the full display projection by default.")
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "No recurring correction patterns detected.")
	}
	return recs, nil
}
