package constraints

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peachstate-cre/propquery/pkg/models"
	"github.com/peachstate-cre/propquery/pkg/schema"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(schema.Default())
}

func TestExtractCounties(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"suffix form", "gas stations in Fulton County", []string{"fulton"}},
		{"in form", "properties in cobb", []string{"cobb"}},
		{"ga form", "restaurants gwinnett ga", []string{"gwinnett"}},
		{"two counties", "listings in fulton county and cobb county", []string{"cobb", "fulton"}},
		{"no county", "cheap gas stations", nil},
		{"county word without name", "properties near the county line", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.query)
			if tt.want == nil {
				assert.Empty(t, got.Counties)
			} else {
				assert.Equal(t, tt.want, got.Counties)
			}
		})
	}
}

func TestExtractPrice(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("under with k suffix", func(t *testing.T) {
		c := e.Extract("gas stations under $500k")
		require.NotNil(t, c.PriceRange)
		assert.Equal(t, 0.0, c.PriceRange.Lo)
		assert.Equal(t, 500000.0, c.PriceRange.Hi)
	})

	t.Run("over with m suffix", func(t *testing.T) {
		c := e.Extract("offices over $1.5m")
		require.NotNil(t, c.PriceRange)
		assert.Equal(t, 1500000.0, c.PriceRange.Lo)
		assert.True(t, math.IsInf(c.PriceRange.Hi, 1))
	})

	t.Run("between with commas", func(t *testing.T) {
		c := e.Extract("retail between $250,000 and $750,000")
		require.NotNil(t, c.PriceRange)
		assert.Equal(t, 250000.0, c.PriceRange.Lo)
		assert.Equal(t, 750000.0, c.PriceRange.Hi)
	})

	t.Run("reversed bounds are normalized", func(t *testing.T) {
		c := e.Extract("between $900k and $300k")
		require.NotNil(t, c.PriceRange)
		assert.Equal(t, 300000.0, c.PriceRange.Lo)
		assert.Equal(t, 900000.0, c.PriceRange.Hi)
	})

	t.Run("acre range is not a price", func(t *testing.T) {
		c := e.Extract("land between 2 and 5 acres")
		assert.Nil(t, c.PriceRange)
		require.NotNil(t, c.SizeRange)
	})

	t.Run("size then price both extracted", func(t *testing.T) {
		c := e.Extract("lots over 10 acres under $200k")
		require.NotNil(t, c.SizeRange)
		assert.Equal(t, 10.0, c.SizeRange.Lo)
		require.NotNil(t, c.PriceRange)
		assert.Equal(t, 200000.0, c.PriceRange.Hi)
	})
}

func TestExtractSize(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("acre range", func(t *testing.T) {
		c := e.Extract("vacant land 2 to 5 acres")
		require.NotNil(t, c.SizeRange)
		assert.Equal(t, models.Range{Lo: 2, Hi: 5}, *c.SizeRange)
		assert.Equal(t, schema.UnitAcres, c.SizeUnit)
	})

	t.Run("over acres", func(t *testing.T) {
		c := e.Extract("parcels over 10 acres")
		require.NotNil(t, c.SizeRange)
		assert.Equal(t, 10.0, c.SizeRange.Lo)
		assert.True(t, math.IsInf(c.SizeRange.Hi, 1))
	})

	t.Run("exact acres", func(t *testing.T) {
		c := e.Extract("show me 3 acre lots")
		require.NotNil(t, c.SizeRange)
		assert.Equal(t, models.Range{Lo: 3, Hi: 3}, *c.SizeRange)
	})

	t.Run("sqft range", func(t *testing.T) {
		c := e.Extract("retail space 1,000 to 5,000 sqft")
		require.NotNil(t, c.SizeRange)
		assert.Equal(t, models.Range{Lo: 1000, Hi: 5000}, *c.SizeRange)
		assert.Equal(t, schema.UnitSqft, c.SizeUnit)
	})

	t.Run("building context selects building column", func(t *testing.T) {
		c := e.Extract("buildings with 10,000 square feet")
		require.NotNil(t, c.SizeRange)
		assert.Equal(t, schema.UnitBuilding, c.SizeUnit)
		assert.Equal(t, 10000.0, c.SizeRange.Lo)
	})

	t.Run("no size", func(t *testing.T) {
		c := e.Extract("gas stations in fulton county")
		assert.Nil(t, c.SizeRange)
		assert.Empty(t, c.SizeUnit)
	})
}

func TestExtractPropertyTypes(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"gas stations in fulton county", []string{"gas_station"}},
		{"c-store listings", []string{"convenience_store"}},
		{"qsr and fast food places", []string{"restaurant"}},
		{"retail shops", []string{"retail"}},
		{"office space", []string{"office"}},
		{"commercial property", []string{"commercial"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := e.Extract(tt.query)
			assert.Equal(t, tt.want, got.PropertyTypes)
		})
	}
}

func TestExtractStatus(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("vacant sets status and fallback type", func(t *testing.T) {
		c := e.Extract("vacant lots in henry county")
		require.NotNil(t, c.Filters)
		assert.Equal(t, "Vacant", c.Filters["status"])
		assert.Contains(t, c.PropertyTypes, "vacant")
	})

	t.Run("empty maps to Vacant", func(t *testing.T) {
		c := e.Extract("empty buildings")
		assert.Equal(t, "Vacant", c.Filters["status"])
	})

	t.Run("for sale", func(t *testing.T) {
		c := e.Extract("restaurants for sale")
		assert.Equal(t, "For Sale", c.Filters["status"])
	})

	t.Run("sold", func(t *testing.T) {
		c := e.Extract("recently sold offices")
		assert.Equal(t, "Sold", c.Filters["status"])
	})

	t.Run("no status", func(t *testing.T) {
		c := e.Extract("gas stations in cobb")
		_, ok := c.Filters["status"]
		assert.False(t, ok)
	})
}

func TestExtractAggregation(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("county grouping", func(t *testing.T) {
		c := e.Extract("how many counties have gas stations")
		assert.Equal(t, models.AggregationCount, c.Aggregation)
		assert.Equal(t, models.GroupByCounty, c.GroupBy)
	})

	t.Run("type grouping", func(t *testing.T) {
		c := e.Extract("count by type across the state")
		assert.Equal(t, models.AggregationCount, c.Aggregation)
		assert.Equal(t, models.GroupByPropertyType, c.GroupBy)
	})

	t.Run("total count", func(t *testing.T) {
		c := e.Extract("how many properties are listed")
		assert.Equal(t, models.AggregationCount, c.Aggregation)
		assert.Empty(t, c.GroupBy)
	})

	t.Run("average", func(t *testing.T) {
		c := e.Extract("average asking price in fulton county")
		assert.Equal(t, models.AggregationAvg, c.Aggregation)
	})

	t.Run("county word alone is not a count", func(t *testing.T) {
		c := e.Extract("gas stations in fulton county")
		assert.Equal(t, models.AggregationNone, c.Aggregation)
	})
}

func TestExtractOrderingAndLimit(t *testing.T) {
	e := newTestExtractor(t)

	t.Run("cheapest", func(t *testing.T) {
		c := e.Extract("cheapest gas stations")
		require.NotNil(t, c.OrderBy)
		assert.Equal(t, "asking_price", c.OrderBy.Column)
		assert.Equal(t, models.Ascending, c.OrderBy.Direction)
	})

	t.Run("most expensive", func(t *testing.T) {
		c := e.Extract("most expensive offices in fulton county")
		require.NotNil(t, c.OrderBy)
		assert.Equal(t, models.Descending, c.OrderBy.Direction)
	})

	t.Run("largest by acres", func(t *testing.T) {
		c := e.Extract("biggest parcels in henry county")
		require.NotNil(t, c.OrderBy)
		assert.Equal(t, "size_acres", c.OrderBy.Column)
		assert.Equal(t, models.Descending, c.OrderBy.Direction)
	})

	t.Run("no ordering", func(t *testing.T) {
		c := e.Extract("gas stations in cobb")
		assert.Nil(t, c.OrderBy)
	})

	t.Run("top n", func(t *testing.T) {
		c := e.Extract("top 10 restaurants in fulton county")
		assert.Equal(t, 10, c.Limit)
	})

	t.Run("n properties", func(t *testing.T) {
		c := e.Extract("20 properties under $500k")
		assert.Equal(t, 20, c.Limit)
	})

	t.Run("no limit", func(t *testing.T) {
		c := e.Extract("gas stations in cobb")
		assert.Zero(t, c.Limit)
	})
}

func TestExtractInterestFlags(t *testing.T) {
	e := newTestExtractor(t)

	c := e.Extract("gas stations with traffic counts and income data")
	assert.Equal(t, true, c.Filters["has_traffic_data"])
	assert.Equal(t, true, c.Filters["has_income_data"])
}

func TestCardinalityBands(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name  string
		query string
		min   int
		max   int
	}{
		{"grouped aggregation", "how many counties have gas stations", 1, 20},
		{"plain aggregation", "how many properties are listed", 1, 1},
		{"county and type", "gas stations in fulton county", 1, 100},
		{"county only", "properties in cobb county", 5, 500},
		{"type only", "restaurants under $500k", 5, 500},
		{"unconstrained", "show me some listings", 10, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.Extract(tt.query)
			assert.Equal(t, tt.min, c.ExpectedMinResults)
			assert.Equal(t, tt.max, c.ExpectedMaxResults)
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor(t)

	query := "cheapest gas stations and restaurants in fulton county under $500k"
	first := e.Extract(query)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract(query))
	}
}

func TestExtractEmptyUtterance(t *testing.T) {
	e := newTestExtractor(t)

	c := e.Extract("")
	assert.True(t, c.Empty())
	assert.Equal(t, 10, c.ExpectedMinResults)
	assert.Equal(t, 1000, c.ExpectedMaxResults)
}
