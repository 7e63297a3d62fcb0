package graceprice

import (
	"strings"

	"github.com/salsation/eventfin/internal/event"
)

// TierFree is stored with an empty tier segment.
const TierFree = "Free"

// Key identifies a grace price pair for a program, category and tier, online or on site.
type Key struct {
	Program  event.Program
	Category event.Category
	Tier     string
	Online   bool
}

// KeyFor builds the key of a tier at the given event.
func KeyFor(ev event.Event, tier string) Key {
	c := ev.Classification()
	return Key{Program: c.Program, Category: c.Category, Tier: tier, Online: ev.IsOnline()}
}

// StorageKey renders the legacy string key used by the grace price table:
// "program-category-tier", with an empty tier for Free and "-Online" appended for online events.
func (k Key) StorageKey() string {
	tier := k.Tier
	if tier == TierFree {
		tier = ""
	}
	var b strings.Builder
	b.WriteString(string(k.Program))
	b.WriteByte('-')
	b.WriteString(string(k.Category))
	b.WriteByte('-')
	b.WriteString(tier)
	if k.Online {
		b.WriteString("-Online")
	}
	return b.String()
}
