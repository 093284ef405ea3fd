// Package corrector rewrites a rejected SQL statement so the next loop
// iteration has a chance to pass validation. Stages run in a fixed
// order and each one contributes a fragment of the human-readable
// correction reason.
package corrector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/schema"
	sqlutil "github.com/peachstate-cre/propquery/pkg/sql"
)

// NoCorrectionReason is returned when no stage changed the statement.
// The orchestrator treats it as a failure to converge.
const NoCorrectionReason = "No specific corrections applied"

// similarLimit caps how many prior corrections the learned-pattern
// stage consults.
const similarLimit = 2

// Store is the slice of the learning store the corrector reads.
type Store interface {
	Similar(ctx context.Context, c *models.Constraints, limit int) ([]models.FeedbackRecord, error)
}

// Corrector holds the vocabulary and the optional learning store. A nil
// store disables the learned-pattern stage; everything else is pure
// string rewriting.
type Corrector struct {
	schema *schema.Map
	store  Store
	logger *zap.Logger
}

func New(m *schema.Map, store Store, logger *zap.Logger) *Corrector {
	return &Corrector{
		schema: m,
		store:  store,
		logger: logger.Named("corrector"),
	}
}

// Correct synthesizes a corrected statement for the given issues. The
// returned reason concatenates one sentence per applied stage. When no
// stage applies, the original SQL comes back with NoCorrectionReason.
func (cr *Corrector) Correct(ctx context.Context, sqlText string, c *models.Constraints, issues []models.Issue, utterance string) (string, string) {
	current := sqlText
	var reasons []string

	apply := func(next, reason string) {
		if next != current && reason != "" {
			reasons = append(reasons, reason)
		}
		current = next
	}

	apply(cr.remapCounties(current, issues))
	apply(cr.repairAggregation(current, issues))
	apply(cr.broadenTypes(current, c, issues))
	apply(cr.encodePriceRange(current, c, issues))
	apply(cr.completeProjection(current))
	apply(cr.applyLearned(ctx, current, c))

	if current == sqlText {
		return sqlText, NoCorrectionReason
	}

	reason := strings.Join(reasons, "; ")
	cr.logger.Debug("synthesized correction",
		zap.String("utterance", utterance),
		zap.Int("issues", len(issues)),
		zap.String("reason", reason))
	return current, reason
}

// remapCounties moves county filters off property_type and onto the
// JSON address field.
func (cr *Corrector) remapCounties(sqlText string, issues []models.Issue) (string, string) {
	var fixed []string
	for _, issue := range issues {
		misuse, ok := issue.(models.CountyFieldMisuse)
		if !ok {
			continue
		}
		next, changed := remapCounty(sqlText, misuse.County)
		if changed {
			sqlText = next
			fixed = append(fixed, misuse.County)
		}
	}
	if len(fixed) == 0 {
		return sqlText, ""
	}
	return sqlText, fmt.Sprintf("re-mapped county filter to address->>'county' for %s", quoteList(fixed))
}

func remapCounty(sqlText, county string) (string, bool) {
	re := regexp.MustCompile(`(?i)property_type\s+ILIKE\s+'%` + regexp.QuoteMeta(strings.ToLower(county)) + `%'`)
	if !re.MatchString(sqlText) {
		return sqlText, false
	}
	replacement := fmt.Sprintf("address->>'county' ILIKE '%%%s%%'", strings.ToLower(county))
	return re.ReplaceAllLiteralString(sqlText, replacement), true
}

var groupByRe = regexp.MustCompile(`(?is)\bgroup\s+by\s+(.*?)(\s+order\s+by|\s+limit\s+|;|$)`)

// repairAggregation makes the statement shaped like a count: COUNT(*)
// leads the projection and asking_price is dropped from any GROUP BY.
func (cr *Corrector) repairAggregation(sqlText string, issues []models.Issue) (string, string) {
	if !hasIssue(issues, models.IssueAggregationShape) {
		return sqlText, ""
	}

	var parts []string

	if !strings.Contains(strings.ToLower(sqlText), "count(") {
		start, _, ok := sqlutil.SelectListBounds(sqlText)
		if ok {
			alias := "total_properties"
			if groupByRe.MatchString(sqlText) {
				alias = "property_count"
			}
			rest := strings.TrimLeft(sqlText[start:], " ")
			sqlText = sqlText[:start] + " COUNT(*) AS " + alias + ", " + rest
			parts = append(parts, "added COUNT(*) to the projection")
		}
	}

	if m := groupByRe.FindStringSubmatchIndex(sqlText); m != nil {
		listStart, listEnd := m[2], m[3]
		list := sqlText[listStart:listEnd]
		if strings.Contains(strings.ToLower(list), "asking_price") {
			var kept []string
			for _, col := range strings.Split(list, ",") {
				if strings.Contains(strings.ToLower(col), "asking_price") {
					continue
				}
				kept = append(kept, strings.TrimSpace(col))
			}
			if len(kept) > 0 {
				sqlText = sqlText[:listStart] + strings.Join(kept, ", ") + sqlText[listEnd:]
			} else {
				clauseStart, clauseEnd := m[0], m[3]
				sqlText = strings.TrimRight(sqlText[:clauseStart], " ") + sqlText[clauseEnd:]
			}
			parts = append(parts, "removed asking_price from GROUP BY")
		}
	}

	if len(parts) == 0 {
		return sqlText, ""
	}
	return sqlText, strings.Join(parts, "; ")
}

// broadenTypes swaps a single-token property_type match for the full
// synonym expression when the result came back too thin.
func (cr *Corrector) broadenTypes(sqlText string, c *models.Constraints, issues []models.Issue) (string, string) {
	if !hasIssue(issues, models.IssueTooFewRows) {
		return sqlText, ""
	}

	var broadened []string
	for _, canonical := range c.PropertyTypes {
		tokens := append([]string{canonical}, cr.schema.Synonyms(canonical)...)
		for _, tok := range tokens {
			re := regexp.MustCompile(`(?i)property_type\s+ILIKE\s+'%` + regexp.QuoteMeta(strings.ToLower(tok)) + `%'`)
			if !re.MatchString(sqlText) {
				continue
			}
			sqlText = replaceFirst(re, sqlText, cr.schema.PropertyTypePredicate(canonical))
			broadened = append(broadened, canonical)
			break
		}
	}
	if len(broadened) == 0 {
		return sqlText, ""
	}
	return sqlText, fmt.Sprintf("broadened %s to the full synonym set", quoteList(broadened))
}

var priceInequalityRe = regexp.MustCompile(`(?i)asking_price\s*>=?\s*(\d+(?:\.\d+)?)\s+AND\s+asking_price\s*<=?\s*(\d+(?:\.\d+)?)`)

// encodePriceRange rewrites an inequality pair over asking_price as a
// single BETWEEN.
func (cr *Corrector) encodePriceRange(sqlText string, c *models.Constraints, issues []models.Issue) (string, string) {
	if !hasIssue(issues, models.IssuePriceRangeEncoding) {
		return sqlText, ""
	}
	m := priceInequalityRe.FindStringSubmatch(sqlText)
	if m == nil {
		return sqlText, ""
	}
	between := fmt.Sprintf("asking_price BETWEEN %s AND %s", m[1], m[2])
	return priceInequalityRe.ReplaceAllLiteralString(sqlText, between), "rewrote asking_price inequalities as BETWEEN"
}

// requiredColumns must appear in every non-aggregate projection so the
// caller can render a listing without a second round-trip.
var requiredColumns = []string{"listing_url", "address", "zoning"}

var aggregateMarkers = []string{"group by", "count(", "sum(", "avg(", "min(", "max("}

// completeProjection appends the listing columns a non-aggregate
// statement forgot to select.
func (cr *Corrector) completeProjection(sqlText string) (string, string) {
	lower := strings.ToLower(sqlText)
	for _, marker := range aggregateMarkers {
		if strings.Contains(lower, marker) {
			return sqlText, ""
		}
	}

	cols := sqlutil.SelectColumns(sqlText)
	if cols == nil {
		return sqlText, ""
	}
	present := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		present[col.Name] = struct{}{}
	}

	var missing []string
	for _, want := range requiredColumns {
		if _, ok := present[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) == 0 {
		return sqlText, ""
	}

	_, end, ok := sqlutil.SelectListBounds(sqlText)
	if !ok {
		return sqlText, ""
	}
	head := strings.TrimRight(sqlText[:end], " ")
	sqlText = head + ", " + strings.Join(missing, ", ") + sqlText[end:]
	return sqlText, "appended missing projection columns " + strings.Join(missing, ", ")
}

// applyLearned consults prior successful corrections and re-applies a
// county re-mapping when a similar request needed one and the misused
// form is still present.
func (cr *Corrector) applyLearned(ctx context.Context, sqlText string, c *models.Constraints) (string, string) {
	if cr.store == nil {
		return sqlText, ""
	}
	records, err := cr.store.Similar(ctx, c, similarLimit)
	if err != nil {
		cr.logger.Warn("learned-pattern lookup failed", zap.Error(err))
		return sqlText, ""
	}

	var fixed []string
	for _, rec := range records {
		if !strings.Contains(strings.ToLower(rec.CorrectionReason), "county") {
			continue
		}
		for _, county := range c.Counties {
			next, changed := remapCounty(sqlText, county)
			if changed {
				sqlText = next
				fixed = append(fixed, county)
			}
		}
	}
	if len(fixed) == 0 {
		return sqlText, ""
	}
	return sqlText, fmt.Sprintf("re-applied learned county re-mapping for %s", quoteList(fixed))
}

func hasIssue(issues []models.Issue, kind models.IssueKind) bool {
	for _, issue := range issues {
		if issue.Kind() == kind {
			return true
		}
	}
	return false
}

func replaceFirst(re *regexp.Regexp, s, replacement string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + replacement + s[loc[1]:]
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return strings.Join(quoted, ", ")
}
