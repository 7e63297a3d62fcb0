package graceprice

import (
	"sort"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/tickets"
)

// GapReason explains why a tier cannot be converted.
type GapReason string

const (
	GapMissing      GapReason = "MISSING"
	GapZeroEURPrice GapReason = "ZERO_EUR_PRICE"
)

// Gap is a tier of the event that will stay in EUR.
type Gap struct {
	Tier       string    `json:"tier"`
	StorageKey string    `json:"storage_key"`
	Reason     GapReason `json:"reason"`
}

// Result summarises the conversion coverage of an event.
type Result struct {
	Applies   bool                  `json:"applies"`
	Checked   int                   `json:"checked"`
	Gaps      []Gap                 `json:"gaps"`
	Available map[string]Conversion `json:"available"`
}

// Validate lists the tiers of the event's buckets lacking a usable conversion.
func Validate(table Table, ev event.Event, buckets []tickets.Bucket) Result {
	res := Result{Applies: Applies(ev), Gaps: make([]Gap, 0), Available: map[string]Conversion{}}
	if !res.Applies {
		return res
	}
	tiers := make(map[string]struct{})
	for _, b := range buckets {
		if b.HasTier() {
			tiers[*b.TierLevel] = struct{}{}
		}
	}
	names := make([]string, 0, len(tiers))
	for tier := range tiers {
		names = append(names, tier)
	}
	sort.Strings(names)
	for _, tier := range names {
		key := KeyFor(ev, tier)
		res.Checked++
		conv, ok := table.Lookup(key)
		switch {
		case !ok:
			res.Gaps = append(res.Gaps, Gap{Tier: tier, StorageKey: key.StorageKey(), Reason: GapMissing})
		case conv.EURPrice.IsZero():
			res.Gaps = append(res.Gaps, Gap{Tier: tier, StorageKey: key.StorageKey(), Reason: GapZeroEURPrice})
		default:
			res.Available[key.StorageKey()] = conv
		}
	}
	return res
}
