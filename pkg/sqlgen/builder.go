// Package sqlgen renders a Constraints record into a SELECT over the
// property table. The builder is a pure function of its inputs and is
// used as the rule-based candidate source.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/schema"
	sqlutil "github.com/peachstate-cre/propquery/pkg/sql"
)

// Table is the physical property table.
const Table = `"Georgia Properties"`

// baseColumns is the minimum projection for list queries.
var baseColumns = []string{
	"id", "name", "property_type", "property_subtype",
	"asking_price", "listing_url", "address", "zoning",
}

// Builder renders SQL from constraints using one vocabulary map and
// the engine's default limit and ordering.
type Builder struct {
	schemaMap    *schema.Map
	defaultLimit int
	defaultOrder models.OrderBy
}

// NewBuilder constructs a Builder. A zero defaultLimit falls back to 50.
func NewBuilder(m *schema.Map, defaultLimit int, defaultOrder models.OrderBy) *Builder {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if defaultOrder.Column == "" {
		defaultOrder = models.OrderBy{Column: "asking_price", Direction: models.Ascending}
	}
	return &Builder{schemaMap: m, defaultLimit: defaultLimit, defaultOrder: defaultOrder}
}

// Build renders the SELECT for one constraint record. The second
// return lists warnings for filter values dropped by the injection
// screen; the statement itself is always well-formed.
func (b *Builder) Build(c *models.Constraints) (string, []string) {
	if c.Aggregation != models.AggregationNone {
		return b.buildAggregate(c)
	}
	return b.buildList(c)
}

func (b *Builder) buildList(c *models.Constraints) (string, []string) {
	columns := append([]string{}, baseColumns...)
	if c.SizeRange != nil {
		sizeCol := b.schemaMap.SizeColumn(c.SizeUnit)
		if !containsColumn(columns, sizeCol) {
			columns = append(columns, sizeCol)
		}
	}

	where, warnings := b.predicates(c)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(Table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	order := b.defaultOrder
	if c.OrderBy != nil {
		order = *c.OrderBy
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s", order.Column, order.Direction)

	limit := c.Limit
	if limit <= 0 {
		limit = b.defaultLimit
	}
	fmt.Fprintf(&sb, " LIMIT %d", limit)

	return sb.String(), warnings
}

func (b *Builder) buildAggregate(c *models.Constraints) (string, []string) {
	where, warnings := b.predicates(c)

	var sb strings.Builder
	switch {
	case c.Aggregation == models.AggregationCount && c.GroupBy == models.GroupByCounty:
		sb.WriteString("SELECT address->>'county' AS county, COUNT(*) AS property_count FROM ")
		sb.WriteString(Table)
		where = append([]string{"address->>'county' IS NOT NULL"}, where...)
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
		sb.WriteString(" GROUP BY address->>'county' ORDER BY property_count DESC")

	case c.Aggregation == models.AggregationCount && c.GroupBy == models.GroupByPropertyType:
		sb.WriteString("SELECT property_type, COUNT(*) AS property_count FROM ")
		sb.WriteString(Table)
		where = append([]string{"property_type IS NOT NULL"}, where...)
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
		sb.WriteString(" GROUP BY property_type ORDER BY property_count DESC")

	case c.Aggregation == models.AggregationCount:
		sb.WriteString("SELECT COUNT(*) AS total_properties FROM ")
		sb.WriteString(Table)
		if len(where) > 0 {
			sb.WriteString(" WHERE ")
			sb.WriteString(strings.Join(where, " AND "))
		}

	default:
		fn := string(c.Aggregation)
		alias := scalarAlias(c.Aggregation)
		fmt.Fprintf(&sb, "SELECT %s(asking_price) AS %s FROM %s", fn, alias, Table)
		where = append([]string{"asking_price IS NOT NULL"}, where...)
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	return sb.String(), warnings
}

// predicates composes the WHERE conjuncts shared by list and aggregate
// shapes: counties OR-joined, broadened property types, size and price
// ranges, and the screened status filter.
func (b *Builder) predicates(c *models.Constraints) ([]string, []string) {
	var where []string
	var warnings []string

	if len(c.Counties) > 0 {
		parts := make([]string, 0, len(c.Counties))
		for _, county := range c.Counties {
			parts = append(parts, b.schemaMap.CountyPredicate(county))
		}
		where = append(where, orJoin(parts))
	}

	if len(c.PropertyTypes) > 0 {
		parts := make([]string, 0, len(c.PropertyTypes))
		for _, pt := range c.PropertyTypes {
			parts = append(parts, b.schemaMap.PropertyTypePredicate(pt))
		}
		where = append(where, orJoin(parts))
	}

	if c.SizeRange != nil {
		where = append(where, rangePredicate(b.schemaMap.SizeColumn(c.SizeUnit), *c.SizeRange))
	}

	if c.PriceRange != nil {
		where = append(where, rangePredicate("asking_price", *c.PriceRange))
	}

	if status, ok := c.Filters["status"].(string); ok {
		if finding := sqlutil.ScreenValue("status", status); finding != nil {
			warnings = append(warnings,
				fmt.Sprintf("dropped status filter: value failed injection screen (fingerprint %s)", finding.Fingerprint))
		} else {
			where = append(where, fmt.Sprintf("status = '%s'", escapeLiteral(status)))
		}
	}

	return where, warnings
}

// rangePredicate renders BETWEEN for bounded ranges and a single
// inequality otherwise.
func rangePredicate(column string, r models.Range) string {
	switch {
	case r.Bounded():
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, formatNumber(r.Lo), formatNumber(r.Hi))
	case r.Lo > 0:
		return fmt.Sprintf("%s >= %s", column, formatNumber(r.Lo))
	default:
		return fmt.Sprintf("%s <= %s", column, formatNumber(r.Hi))
	}
}

func scalarAlias(agg models.Aggregation) string {
	switch agg {
	case models.AggregationAvg:
		return "avg_price"
	case models.AggregationSum:
		return "total_price"
	case models.AggregationMin:
		return "min_price"
	case models.AggregationMax:
		return "max_price"
	default:
		return "value"
	}
}

func orJoin(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
