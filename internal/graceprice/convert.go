package graceprice

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/tickets"
)

// Conversion is a reference JPY/EUR price pair.
type Conversion struct {
	Key      string          `json:"key"`
	JPYPrice decimal.Decimal `json:"jpy_price"`
	EURPrice decimal.Decimal `json:"eur_price"`
}

// Rate returns JPYPrice/EURPrice. A zero EUR price yields no rate.
func (c Conversion) Rate() (decimal.Decimal, bool) {
	if c.EURPrice.IsZero() {
		return decimal.Zero, false
	}
	return c.JPYPrice.Div(c.EURPrice), true
}

// Table is an immutable view of the grace price conversions keyed by storage key.
type Table struct {
	rows map[string]Conversion
}

// NewTable indexes conversions by storage key.
func NewTable(conversions []Conversion) Table {
	m := make(map[string]Conversion, len(conversions))
	for _, c := range conversions {
		m[c.Key] = c
	}
	return Table{rows: m}
}

// Conversions returns the indexed conversions ordered by storage key.
func (t Table) Conversions() []Conversion {
	out := make([]Conversion, 0, len(t.rows))
	for _, c := range t.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup finds the conversion for key.
func (t Table) Lookup(key Key) (Conversion, bool) {
	c, ok := t.rows[key.StorageKey()]
	return c, ok
}

// RateFor returns a usable rate for key. Missing rows and zero EUR prices both yield false.
func (t Table) RateFor(key Key) (decimal.Decimal, bool) {
	c, ok := t.Lookup(key)
	if !ok {
		return decimal.Zero, false
	}
	return c.Rate()
}

// Converter reprices buckets of Japan-market events into JPY.
type Converter struct {
	Table     Table
	OnMissing func(Key)
}

// Applies reports whether conversion is relevant for the event.
func Applies(ev event.Event) bool {
	return event.IsJapanMarket(ev.Country)
}

// Apply converts eligible buckets in place and returns how many were converted.
// Buckets without a tier level are left untouched; buckets without a usable rate stay in EUR.
func (c Converter) Apply(ev event.Event, buckets []tickets.Bucket) int {
	if !Applies(ev) {
		return 0
	}
	converted := 0
	for i := range buckets {
		b := &buckets[i]
		if !b.HasTier() || b.Currency == tickets.CurrencyJPY {
			continue
		}
		key := KeyFor(ev, *b.TierLevel)
		rate, ok := c.Table.RateFor(key)
		if !ok {
			if c.OnMissing != nil {
				c.OnMissing(key)
			}
			continue
		}
		b.Reprice(b.UnitPrice.Mul(rate), tickets.CurrencyJPY)
		converted++
	}
	return converted
}
