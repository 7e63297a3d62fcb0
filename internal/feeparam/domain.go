package feeparam

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/tickets"
)

// Key identifies a negotiated fee percentage. Matching is exact and case-sensitive.
type Key struct {
	Program    event.Program
	Category   event.Category
	Venue      string
	Attendance tickets.Attendance
}

// String renders the storage key "{program}-{category}-{venue}-{attendance}".
func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s-%s", k.Program, k.Category, k.Venue, k.Attendance)
}

// FeeParam is a single admin-maintained percentage row.
type FeeParam struct {
	Key     string          `json:"key"`
	Percent decimal.Decimal `json:"percent"`
}

var hundred = decimal.NewFromInt(100)

// Snapshot is an immutable view of the fee parameter table.
type Snapshot struct {
	percents map[string]decimal.Decimal
}

// NewSnapshot indexes params by key. Later duplicates win; the table enforces uniqueness anyway.
func NewSnapshot(params []FeeParam) Snapshot {
	m := make(map[string]decimal.Decimal, len(params))
	for _, p := range params {
		m[p.Key] = p.Percent
	}
	return Snapshot{percents: m}
}

// Params returns the indexed params ordered by key.
func (s Snapshot) Params() []FeeParam {
	out := make([]FeeParam, 0, len(s.percents))
	for key, pct := range s.percents {
		out = append(out, FeeParam{Key: key, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Resolve returns the percentage (0..100) for key. Absent keys resolve to zero.
func (s Snapshot) Resolve(key Key) (decimal.Decimal, bool) {
	pct, ok := s.percents[key.String()]
	if !ok {
		return decimal.Zero, false
	}
	return pct, true
}

// Resolver applies a snapshot to buckets and reports misses.
type Resolver struct {
	Snapshot  Snapshot
	OnMissing func(Key)
}

// Percent resolves the percentage for key, notifying OnMissing when absent.
func (r Resolver) Percent(key Key) decimal.Decimal {
	pct, ok := r.Snapshot.Resolve(key)
	if !ok && r.OnMissing != nil {
		r.OnMissing(key)
	}
	return pct
}

// Apply sets TrainerFeePct (as a 0..1 ratio) on every bucket in place.
func (r Resolver) Apply(ev event.Event, buckets []tickets.Bucket) {
	c := ev.Classification()
	for i := range buckets {
		key := Key{
			Program:    c.Program,
			Category:   c.Category,
			Venue:      ev.Venue,
			Attendance: buckets[i].Attendance,
		}
		buckets[i].TrainerFeePct = r.Percent(key).Div(hundred)
	}
}
