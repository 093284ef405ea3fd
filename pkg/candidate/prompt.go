package candidate

import (
	"regexp"
	"strings"
)

// systemPrompt is shared by the LLM providers. It pins the physical
// schema and the encoding conventions the validator checks for, so a
// well-behaved model needs no correction at all.
const systemPrompt = `You translate natural-language questions about Georgia commercial
real estate into a single PostgreSQL SELECT statement.

Table: "Georgia Properties"
Columns: id, name, property_type, property_subtype, asking_price,
address (JSON with county, city, state, zip, street), zoning,
listing_url, thumbnail_url, description, status, size_acres, size_sqft,
building_sqft, traffic_count_aadt.

Rules:
- Filter counties with address->>'county' ILIKE '%<county>%', never property_type.
- Encode bounded price ranges with BETWEEN.
- Non-aggregate queries must select at least id, name, property_type,
  property_subtype, asking_price, listing_url, address, zoning.
- Counting questions use COUNT(*).
- Return exactly one statement and nothing else.`

var codeFenceRe = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// extractSQL pulls the statement out of an LLM reply, tolerating code
// fences and surrounding prose.
func extractSQL(reply string) string {
	if m := codeFenceRe.FindStringSubmatch(reply); m != nil {
		reply = m[1]
	}
	reply = strings.TrimSpace(reply)

	// Drop any prose before the first SELECT.
	lower := strings.ToLower(reply)
	if idx := strings.Index(lower, "select"); idx > 0 {
		reply = reply[idx:]
	}
	return strings.TrimSpace(reply)
}
