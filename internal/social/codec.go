// City persistence codec. Decoding never silently drops data: every missing,
// malformed or out-of-range field is reported as a FieldIssue.
package social

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/talgya/tradewinds/internal/economy"
)

// IssueKind classifies a decode problem.
type IssueKind string

const (
	IssueMissing    IssueKind = "missing"
	IssueMalformed  IssueKind = "malformed"
	IssueOutOfRange IssueKind = "out_of_range"
	IssueUnknown    IssueKind = "unknown"
)

// FieldIssue describes one field that could not be restored as stored.
type FieldIssue struct {
	Field  string    `json:"field"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

func (i FieldIssue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", i.Field, i.Kind, i.Detail)
}

// Diagnostics is the list of issues found while decoding a record.
type Diagnostics []FieldIssue

// Err returns nil when there are no issues, otherwise a joined error.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}
	errs := make([]error, len(d))
	for i, issue := range d {
		errs[i] = errors.New(issue.String())
	}
	return errors.Join(errs...)
}

// Has reports whether any issue concerns the given field.
func (d Diagnostics) Has(field string) bool {
	for _, i := range d {
		if i.Field == field {
			return true
		}
	}
	return false
}

// EncodeCity serialises a city to JSON.
func EncodeCity(c *City) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeCity restores a city from JSON. Fields that are absent or malformed keep
// their NewCity defaults and are reported in the returned Diagnostics. The error
// is non-nil only when the document is not a JSON object at all.
func DecodeCity(data []byte) (*City, Diagnostics, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode city: %w", err)
	}
	if raw == nil {
		return nil, nil, errors.New("decode city: document is null")
	}

	c := NewCity(0, "", "")
	var diags Diagnostics

	scalars := []struct {
		name   string
		target any
	}{
		{"id", &c.ID},
		{"name", &c.Name},
		{"type", &c.Type},
		{"region", &c.Region},
		{"x", &c.X},
		{"y", &c.Y},
		{"population", &c.Population},
		{"wealth", &c.Wealth},
		{"influence", &c.Influence},
		{"stability", &c.Stability},
		{"defense_level", &c.DefenseLevel},
		{"loyalty_level", &c.LoyaltyLevel},
		{"tax_rate", &c.TaxRate},
		{"faction", &c.Faction},
		{"port_capacity", &c.PortCapacity},
		{"trading_volume", &c.TradingVolume},
		{"market_modifier", &c.MarketModifier},
		{"stock_cap", &c.StockCap},
		{"resources", &c.Resources},
		{"available_ships", &c.AvailableShips},
		{"facilities", &c.Facilities},
	}

	known := map[string]bool{"prices": true, "availability": true}
	for _, f := range scalars {
		known[f.name] = true
		msg, ok := raw[f.name]
		if !ok {
			diags = append(diags, FieldIssue{Field: f.name, Kind: IssueMissing})
			continue
		}
		if err := json.Unmarshal(msg, f.target); err != nil {
			diags = append(diags, FieldIssue{Field: f.name, Kind: IssueMalformed, Detail: err.Error()})
		}
	}
	if c.Resources == nil {
		c.Resources = make(map[string]Resource)
	}

	diags = append(diags, decodeGoodMap(raw, "prices", c.Prices)...)
	diags = append(diags, decodeGoodMap(raw, "availability", c.Availability)...)

	for _, name := range sortedRawKeys(raw) {
		if !known[name] {
			diags = append(diags, FieldIssue{Field: name, Kind: IssueUnknown})
		}
	}

	diags = append(diags, c.normalize()...)
	return c, diags, nil
}

// decodeGoodMap decodes a goodID-keyed object entry by entry so a single bad
// entry does not discard the rest of the market.
func decodeGoodMap[V int | float64](raw map[string]json.RawMessage, field string, dst map[economy.GoodID]V) Diagnostics {
	msg, ok := raw[field]
	if !ok {
		return Diagnostics{{Field: field, Kind: IssueMissing}}
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(msg, &entries); err != nil {
		return Diagnostics{{Field: field, Kind: IssueMalformed, Detail: err.Error()}}
	}

	var diags Diagnostics
	for _, key := range sortedRawKeys(entries) {
		path := field + "." + key
		id, err := strconv.Atoi(key)
		if err != nil {
			diags = append(diags, FieldIssue{Field: path, Kind: IssueMalformed, Detail: "good id is not an integer"})
			continue
		}
		var v V
		if err := json.Unmarshal(entries[key], &v); err != nil {
			diags = append(diags, FieldIssue{Field: path, Kind: IssueMalformed, Detail: err.Error()})
			continue
		}
		dst[id] = v
	}
	return diags
}

// normalize clamps ranged fields and drops market entries that break the
// "only goods currently traded" invariant.
func (c *City) normalize() Diagnostics {
	var diags Diagnostics
	clampField := func(name string, v *float64, lo, hi float64) {
		if *v < lo || *v > hi {
			diags = append(diags, FieldIssue{Field: name, Kind: IssueOutOfRange, Detail: strconv.FormatFloat(*v, 'f', -1, 64)})
			*v = clamp(*v, lo, hi)
		}
	}
	clampField("stability", &c.Stability, 0, 100)
	clampField("loyalty_level", &c.LoyaltyLevel, 0, 100)
	clampField("market_modifier", &c.MarketModifier, MinMarketModifier, MaxMarketModifier)

	if c.TaxRate < 0 || c.TaxRate > 30 {
		diags = append(diags, FieldIssue{Field: "tax_rate", Kind: IssueOutOfRange, Detail: strconv.Itoa(c.TaxRate)})
		c.TaxRate = min(max(c.TaxRate, 0), 30)
	}

	for _, id := range sortedIDs(c.Availability) {
		if c.Availability[id] <= 0 {
			diags = append(diags, FieldIssue{Field: "availability." + strconv.Itoa(id), Kind: IssueOutOfRange, Detail: "non-positive stock removed"})
			delete(c.Availability, id)
		}
	}
	for _, id := range sortedIDs(c.Prices) {
		p := c.Prices[id]
		if p < MinGoodPrice || p > MaxGoodPrice {
			diags = append(diags, FieldIssue{Field: "prices." + strconv.Itoa(id), Kind: IssueOutOfRange, Detail: strconv.FormatFloat(p, 'f', -1, 64)})
			c.Prices[id] = clamp(p, MinGoodPrice, MaxGoodPrice)
		}
	}
	return diags
}

func sortedRawKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary renders the diagnostics on one line for logging.
func (d Diagnostics) Summary() string {
	parts := make([]string, len(d))
	for i, issue := range d {
		parts[i] = issue.String()
	}
	return strings.Join(parts, "; ")
}
