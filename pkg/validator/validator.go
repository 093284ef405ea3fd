// Package validator decides whether an execution result satisfies the
// constraints extracted from the utterance. It is pure: one call, one
// verdict, no I/O.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/peachstate-cre/propquery/pkg/models"
)

var priceBetweenRe = regexp.MustCompile(`asking_price\s+between`)

// Validate inspects the result and the SQL text against the
// constraints. It returns ok=true with no issues when the result is
// acceptable; otherwise every violated rule contributes one typed
// issue. SQL inspection is case-insensitive except string literals.
func Validate(result *models.ExecutionResult, c *models.Constraints, sqlText string) (bool, []models.Issue) {
	var issues []models.Issue

	if result.Failed() {
		for _, msg := range result.Errors {
			issues = append(issues, models.ExecutionError{Msg: msg})
		}
		return false, issues
	}

	lowerSQL := strings.ToLower(sqlText)

	if c.ExpectedMinResults > 0 && result.RowCount < c.ExpectedMinResults {
		issues = append(issues, models.TooFewRows{Got: result.RowCount, Min: c.ExpectedMinResults})
	}
	if c.ExpectedMaxResults > 0 && result.RowCount > c.ExpectedMaxResults {
		issues = append(issues, models.TooManyRows{Got: result.RowCount, Max: c.ExpectedMaxResults})
	}

	if c.Aggregation == models.AggregationCount {
		if !strings.Contains(lowerSQL, "count(") {
			issues = append(issues, models.AggregationShape{Reason: "missing COUNT"})
		}
		if result.RowCount == 0 {
			issues = append(issues, models.AggregationShape{Reason: "empty aggregate"})
		}
	}

	for _, county := range c.Counties {
		misused := fmt.Sprintf("property_type ilike '%%%s%%'", county)
		if strings.Contains(lowerSQL, misused) {
			issues = append(issues, models.CountyFieldMisuse{County: county})
		}
	}

	if c.PriceRange != nil && c.PriceRange.Bounded() &&
		strings.Contains(lowerSQL, "asking_price") &&
		!priceBetweenRe.MatchString(lowerSQL) {
		issues = append(issues, models.PriceRangeEncoding{Reason: "missing BETWEEN"})
	}

	return len(issues) == 0, issues
}
