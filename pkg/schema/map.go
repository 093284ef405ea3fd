// Package schema maps domain vocabulary onto the property table: county
// tokens to address predicates, property-type synonyms to broadened
// ILIKE expressions, and size units to their physical columns.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// Size units recognized by the extractor and the SQL builder.
const (
	UnitAcres    = "acres"
	UnitSqft     = "sqft"
	UnitBuilding = "building"
)

// Map is the immutable vocabulary for one property dataset. Construct it
// once with Default or Load and share it freely; all methods are
// read-only.
type Map struct {
	counties map[string]struct{}
	synonyms map[string][]string
}

// New builds a Map from an explicit county list and synonym table.
// County tokens and synonym variants are lowercased on the way in.
func New(counties []string, synonyms map[string][]string) *Map {
	m := &Map{
		counties: make(map[string]struct{}, len(counties)),
		synonyms: make(map[string][]string, len(synonyms)),
	}
	for _, c := range counties {
		m.counties[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	for canonical, variants := range synonyms {
		lowered := make([]string, 0, len(variants))
		for _, v := range variants {
			lowered = append(lowered, strings.ToLower(strings.TrimSpace(v)))
		}
		m.synonyms[strings.ToLower(canonical)] = lowered
	}
	return m
}

// Default returns the Map for the Georgia commercial property dataset.
func Default() *Map {
	return New(georgiaCounties, defaultSynonyms())
}

// HasCounty reports whether the lowercase token is in the closed county
// list.
func (m *Map) HasCounty(token string) bool {
	_, ok := m.counties[strings.ToLower(token)]
	return ok
}

// Counties returns the closed county list in sorted order.
func (m *Map) Counties() []string {
	out := make([]string, 0, len(m.counties))
	for c := range m.counties {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CanonicalTypes returns the canonical property-type tokens in sorted
// order.
func (m *Map) CanonicalTypes() []string {
	out := make([]string, 0, len(m.synonyms))
	for t := range m.synonyms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Synonyms returns the surface variants for a canonical type, or nil
// when the type is unknown.
func (m *Map) Synonyms(canonical string) []string {
	return m.synonyms[strings.ToLower(canonical)]
}

// NormalizeType resolves a surface token to its canonical type. Plural
// surface forms are reduced to singular before lookup, so "stations"
// and "restaurants" resolve the same as their singular forms. The second
// return is false when no synonym set contains the token.
func (m *Map) NormalizeType(token string) (string, bool) {
	needle := inflection.Singular(strings.ToLower(strings.TrimSpace(token)))
	for canonical, variants := range m.synonyms {
		if canonical == needle {
			return canonical, true
		}
		for _, v := range variants {
			if v == needle || inflection.Singular(v) == needle {
				return canonical, true
			}
		}
	}
	return "", false
}

// CountyPredicate renders the WHERE fragment that matches a county token
// against the JSON address column.
func (m *Map) CountyPredicate(token string) string {
	return fmt.Sprintf("address->>'county' ILIKE '%%%s%%'", strings.ToLower(token))
}

// PropertyTypePredicate renders the broadened OR expression for a
// canonical type: every synonym is matched against both property_type
// and property_subtype. Unknown types fall back to a single-token match.
func (m *Map) PropertyTypePredicate(canonical string) string {
	variants := m.synonyms[strings.ToLower(canonical)]
	if len(variants) == 0 {
		variants = []string{strings.ToLower(canonical)}
	}
	parts := make([]string, 0, len(variants)*2)
	for _, v := range variants {
		parts = append(parts,
			fmt.Sprintf("property_type ILIKE '%%%s%%'", v),
			fmt.Sprintf("property_subtype ILIKE '%%%s%%'", v),
		)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// SizeColumn maps a size unit to its table column. Unknown units map to
// the lot size column.
func (m *Map) SizeColumn(unit string) string {
	switch unit {
	case UnitAcres:
		return "size_acres"
	case UnitBuilding:
		return "building_sqft"
	case UnitSqft:
		return "size_sqft"
	default:
		return "size_sqft"
	}
}

func defaultSynonyms() map[string][]string {
	return map[string][]string{
		"gas_station":       {"gas", "gasoline", "fuel", "petrol", "station"},
		"convenience_store": {"convenience", "c-store", "corner", "mini mart", "quick mart"},
		"restaurant":        {"restaurant", "dining", "food", "eatery", "qsr", "fast food"},
		"retail":            {"retail", "store", "shop"},
		"office":            {"office", "professional"},
		"commercial":        {"commercial"},
		"vacant":            {"vacant", "empty"},
	}
}
