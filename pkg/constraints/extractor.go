// Package constraints turns a natural-language property query into a
// structured Constraints value using deterministic pattern scanners. The
// extractor never fails: unrecognized utterances simply produce an empty
// constraint set with the default cardinality band.
package constraints

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/schema"
)

var (
	// Money amounts accept comma grouping and k/m magnitude suffixes.
	priceBetweenRe = regexp.MustCompile(`between\s*\$?(\d[\d,]*(?:\.\d+)?)([km]?)\s*(?:and|to|-)\s*\$?(\d[\d,]*(?:\.\d+)?)([km]?)(\s*(?:acres?|acre|sq|square|sqft))?`)
	priceUnderRe   = regexp.MustCompile(`under\s*\$?(\d[\d,]*(?:\.\d+)?)([km]?)(\s*(?:acres?|acre|sq|square|sqft))?`)
	priceOverRe    = regexp.MustCompile(`over\s*\$?(\d[\d,]*(?:\.\d+)?)([km]?)(\s*(?:acres?|acre|sq|square|sqft))?`)

	acresRangeRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:to|-|and)\s*(\d+(?:\.\d+)?)\s*acres?`)
	acresSingleRe = regexp.MustCompile(`(over|under)?\s*(\d+(?:\.\d+)?)\s*acres?`)
	sqftRangeRe   = regexp.MustCompile(`(\d[\d,]*)\s*(?:to|-|and)\s*(\d[\d,]*)\s*(?:sq\.?\s*ft\.?|square\s*feet?|sqft)`)
	sqftSingleRe  = regexp.MustCompile(`(over|under)?\s*(\d[\d,]*)\s*(?:sq\.?\s*ft\.?|square\s*feet?|sqft)`)
	buildingRe    = regexp.MustCompile(`building|structure|indoor`)

	limitRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:first|top|show me|limit)\s+(\d+)\b`),
		regexp.MustCompile(`\b(\d+)\s+(?:properties|listings|results)\b`),
	}

	// "count" alone is avoided: it is a substring of "county".
	aggAvgRe   = regexp.MustCompile(`\b(?:average|avg|mean)\b`)
	aggSumRe   = regexp.MustCompile(`\bsum\b|total value|combined price`)
	aggMaxRe   = regexp.MustCompile(`\b(?:maximum|max)\b|highest price`)
	aggMinRe   = regexp.MustCompile(`\b(?:minimum|min)\b|lowest price`)
	aggCountRe = regexp.MustCompile(`\bhow many\b|\bcount\s+(?:of|all|by|every)\b|\bcounty count\b|total properties|\bnumber of\b`)
)

// statusMappings resolve surface status terms to the database status
// values, checked in order; the first term found sets the status.
var statusMappings = []struct {
	term   string
	status string
}{
	{"vacant", "Vacant"},
	{"empty", "Vacant"},
	{"for sale", "For Sale"},
	{"available", "Available"},
	{"sold", "Sold"},
	{"active", "Active"},
}

var countGroupCounty = []string{
	"how many counties", "county count", "count of counties",
	"count of every county", "which county has how many", "by county",
	"per county", "each county",
}

var countGroupType = []string{
	"count by type", "property types count", "types statistics", "by type",
	"per type",
}

// Extractor scans utterances with regexes compiled once at construction.
// Safe for concurrent use.
type Extractor struct {
	schemaMap *schema.Map
	countyRes map[string]*regexp.Regexp
	typeRes   map[string][]*regexp.Regexp
	statusRes map[string]*regexp.Regexp
}

// NewExtractor compiles the per-county and per-synonym patterns for the
// given vocabulary.
func NewExtractor(m *schema.Map) *Extractor {
	e := &Extractor{
		schemaMap: m,
		countyRes: make(map[string]*regexp.Regexp),
		typeRes:   make(map[string][]*regexp.Regexp),
		statusRes: make(map[string]*regexp.Regexp),
	}
	for _, county := range m.Counties() {
		quoted := regexp.QuoteMeta(county)
		e.countyRes[county] = regexp.MustCompile(
			fmt.Sprintf(`\b(?:%s\s+county|in\s+%s|%s\s+ga)\b`, quoted, quoted, quoted))
	}
	for _, canonical := range m.CanonicalTypes() {
		if canonical == "vacant" {
			continue
		}
		var res []*regexp.Regexp
		for _, syn := range m.Synonyms(canonical) {
			// Hyphen counts as a word character here so "store" does
			// not fire inside "c-store".
			res = append(res, regexp.MustCompile(
				`(?:^|[^a-z0-9_-])`+regexp.QuoteMeta(syn)+`s?(?:$|[^a-z0-9_-])`))
		}
		e.typeRes[canonical] = res
	}
	for _, sm := range statusMappings {
		e.statusRes[sm.term] = regexp.MustCompile(`\b` + regexp.QuoteMeta(sm.term) + `\b`)
	}
	return e
}

// Extract interprets one utterance. The result is always non-nil and
// identical for identical input.
func (e *Extractor) Extract(utterance string) *models.Constraints {
	query := strings.ToLower(strings.TrimSpace(utterance))

	c := &models.Constraints{
		Counties:      []string{},
		PropertyTypes: []string{},
	}

	e.extractCounties(query, c)
	e.extractPropertyTypes(query, c)
	e.extractStatus(query, c)
	e.extractSize(query, c)
	e.extractPrice(query, c)
	e.extractAggregation(query, c)
	e.extractOrdering(query, c)
	e.extractLimit(query, c)
	e.extractInterestFlags(query, c)
	e.inferCardinality(c)

	return c
}

func (e *Extractor) extractCounties(query string, c *models.Constraints) {
	for _, county := range e.schemaMap.Counties() {
		if e.countyRes[county].MatchString(query) {
			c.Counties = append(c.Counties, county)
		}
	}
}

func (e *Extractor) extractPropertyTypes(query string, c *models.Constraints) {
	seen := make(map[string]struct{})
	for _, canonical := range e.schemaMap.CanonicalTypes() {
		for _, re := range e.typeRes[canonical] {
			if re.MatchString(query) {
				if _, dup := seen[canonical]; !dup {
					seen[canonical] = struct{}{}
					c.PropertyTypes = append(c.PropertyTypes, canonical)
				}
				break
			}
		}
	}
}

func (e *Extractor) extractStatus(query string, c *models.Constraints) {
	for _, sm := range statusMappings {
		if e.statusRes[sm.term].MatchString(query) {
			if c.Filters == nil {
				c.Filters = make(map[string]any)
			}
			c.Filters["status"] = sm.status
			// Vacant listings are frequently typed rather than
			// statused, so keep the type-level match as well.
			if sm.status == "Vacant" && !containsString(c.PropertyTypes, "vacant") {
				c.PropertyTypes = append(c.PropertyTypes, "vacant")
			}
			return
		}
	}
}

func (e *Extractor) extractSize(query string, c *models.Constraints) {
	if m := acresRangeRe.FindStringSubmatch(query); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		c.SizeRange = &models.Range{Lo: lo, Hi: hi}
		c.SizeUnit = schema.UnitAcres
		return
	}

	if m := acresSingleRe.FindStringSubmatch(query); m != nil {
		v, _ := strconv.ParseFloat(m[2], 64)
		switch m[1] {
		case "over":
			c.SizeRange = &models.Range{Lo: v, Hi: math.Inf(1)}
		case "under":
			c.SizeRange = &models.Range{Lo: 0, Hi: v}
		default:
			c.SizeRange = &models.Range{Lo: v, Hi: v}
		}
		c.SizeUnit = schema.UnitAcres
		return
	}

	unit := schema.UnitSqft
	if buildingRe.MatchString(query) {
		unit = schema.UnitBuilding
	}

	if m := sqftRangeRe.FindStringSubmatch(query); m != nil {
		lo := parseGrouped(m[1])
		hi := parseGrouped(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		c.SizeRange = &models.Range{Lo: lo, Hi: hi}
		c.SizeUnit = unit
		return
	}

	if m := sqftSingleRe.FindStringSubmatch(query); m != nil {
		v := parseGrouped(m[2])
		switch m[1] {
		case "under":
			c.SizeRange = &models.Range{Lo: 0, Hi: v}
		default:
			// Bare footage reads as a floor ("5,000 sqft retail").
			c.SizeRange = &models.Range{Lo: v, Hi: math.Inf(1)}
		}
		c.SizeUnit = unit
	}
}

func (e *Extractor) extractPrice(query string, c *models.Constraints) {
	// A trailing size unit means the number was acreage or footage, not
	// money; scan past those matches.
	for _, m := range priceBetweenRe.FindAllStringSubmatch(query, -1) {
		if m[5] != "" {
			continue
		}
		lo := parseMoney(m[1], m[2])
		hi := parseMoney(m[3], m[4])
		if lo > hi {
			lo, hi = hi, lo
		}
		c.PriceRange = &models.Range{Lo: lo, Hi: hi}
		return
	}

	for _, m := range priceUnderRe.FindAllStringSubmatch(query, -1) {
		if m[3] != "" {
			continue
		}
		c.PriceRange = &models.Range{Lo: 0, Hi: parseMoney(m[1], m[2])}
		return
	}

	for _, m := range priceOverRe.FindAllStringSubmatch(query, -1) {
		if m[3] != "" {
			continue
		}
		c.PriceRange = &models.Range{Lo: parseMoney(m[1], m[2]), Hi: math.Inf(1)}
		return
	}
}

func (e *Extractor) extractAggregation(query string, c *models.Constraints) {
	switch {
	case aggAvgRe.MatchString(query):
		c.Aggregation = models.AggregationAvg
	case aggSumRe.MatchString(query):
		c.Aggregation = models.AggregationSum
	case aggMaxRe.MatchString(query):
		c.Aggregation = models.AggregationMax
	case aggMinRe.MatchString(query):
		c.Aggregation = models.AggregationMin
	case aggCountRe.MatchString(query):
		c.Aggregation = models.AggregationCount
	default:
		return
	}

	if c.Aggregation == models.AggregationCount {
		if containsAny(query, countGroupCounty) || strings.Contains(query, "counties") {
			c.GroupBy = models.GroupByCounty
		} else if containsAny(query, countGroupType) {
			c.GroupBy = models.GroupByPropertyType
		}
	}
}

func (e *Extractor) extractOrdering(query string, c *models.Constraints) {
	switch {
	case containsAny(query, []string{"cheapest", "lowest", "budget"}):
		c.OrderBy = &models.OrderBy{Column: "asking_price", Direction: models.Ascending}
	case containsAny(query, []string{"most expensive", "expensive", "highest", "premium"}):
		c.OrderBy = &models.OrderBy{Column: "asking_price", Direction: models.Descending}
	case containsAny(query, []string{"biggest", "largest", "most acres"}):
		c.OrderBy = &models.OrderBy{Column: "size_acres", Direction: models.Descending}
	case containsAny(query, []string{"smallest", "least acres"}):
		c.OrderBy = &models.OrderBy{Column: "size_acres", Direction: models.Ascending}
	}
}

func (e *Extractor) extractLimit(query string, c *models.Constraints) {
	for _, re := range limitRes {
		if m := re.FindStringSubmatch(query); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				c.Limit = n
				return
			}
		}
	}
}

func (e *Extractor) extractInterestFlags(query string, c *models.Constraints) {
	if strings.Contains(query, "traffic") {
		if c.Filters == nil {
			c.Filters = make(map[string]any)
		}
		c.Filters["has_traffic_data"] = true
	}
	if strings.Contains(query, "income") {
		if c.Filters == nil {
			c.Filters = make(map[string]any)
		}
		c.Filters["has_income_data"] = true
	}
}

// inferCardinality assigns the expected result band from the shape of
// the constraint set. Narrower queries expect narrower results.
func (e *Extractor) inferCardinality(c *models.Constraints) {
	switch {
	case c.Aggregation != models.AggregationNone && c.GroupBy != "":
		c.ExpectedMinResults, c.ExpectedMaxResults = 1, 20
	case c.Aggregation != models.AggregationNone:
		c.ExpectedMinResults, c.ExpectedMaxResults = 1, 1
	case len(c.Counties) > 0 && len(c.PropertyTypes) > 0:
		c.ExpectedMinResults, c.ExpectedMaxResults = 1, 100
	case len(c.Counties) > 0 || len(c.PropertyTypes) > 0:
		c.ExpectedMinResults, c.ExpectedMaxResults = 5, 500
	default:
		c.ExpectedMinResults, c.ExpectedMaxResults = 10, 1000
	}
}

func parseMoney(num, suffix string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	switch suffix {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v
}

func parseGrouped(num string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	return v
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
