package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/graceprice"
	"github.com/salsation/eventfin/internal/settlement"
	"github.com/salsation/eventfin/internal/tickets"
)

// ExitGaps is returned when a check finds missing reference data.
const ExitGaps = 10

// ReferenceCLI offers operational helpers around the fee and grace price tables.
type ReferenceCLI struct {
	events    settlement.EventSource
	reference settlement.ReferenceLoader
}

// NewReferenceCLI constructs the helper.
func NewReferenceCLI(events settlement.EventSource, reference settlement.ReferenceLoader) *ReferenceCLI {
	return &ReferenceCLI{events: events, reference: reference}
}

// GracePriceCheckOptions defines the flags of the graceprice-check command.
type GracePriceCheckOptions struct {
	ProdID     int64
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// GracePriceCheckSummary is the JSON output of graceprice-check.
type GracePriceCheckSummary struct {
	ProdID    int64            `json:"prod_id"`
	Country   string           `json:"country"`
	Applies   bool             `json:"applies"`
	OK        bool             `json:"ok"`
	Checked   int              `json:"checked"`
	Gaps      []graceprice.Gap `json:"gaps"`
	Available []string         `json:"available"`
}

// GracePriceCheckCommand reports the tiers of an event that will not convert to JPY.
func (c *ReferenceCLI) GracePriceCheckCommand(ctx context.Context, opts GracePriceCheckOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ProdID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "graceprice-check: -event is required and must be positive")
		return 1
	}
	ev, buckets, err := c.loadBuckets(ctx, opts.ProdID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "graceprice-check: %v\n", err)
		return 1
	}
	ref, err := c.reference.LoadReference(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "graceprice-check: %v\n", err)
		return 1
	}
	summary := buildGracePriceSummary(ev, graceprice.Validate(ref.Grace, ev, buckets))
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "graceprice-check: encode json: %v\n", err)
			return 1
		}
	} else {
		renderGracePriceHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitGaps
	}
	return 0
}

func (c *ReferenceCLI) loadBuckets(ctx context.Context, prodID int64) (event.Event, []tickets.Bucket, error) {
	ev, err := c.events.GetEvent(ctx, prodID)
	if err != nil {
		return event.Event{}, nil, err
	}
	rows, err := c.events.GetRawTicketRows(ctx, prodID)
	if err != nil {
		return event.Event{}, nil, err
	}
	valid, _ := tickets.FilterValid(rows)
	return ev, tickets.Aggregate(valid), nil
}

func buildGracePriceSummary(ev event.Event, res graceprice.Result) GracePriceCheckSummary {
	available := make([]string, 0, len(res.Available))
	for key := range res.Available {
		available = append(available, key)
	}
	sort.Strings(available)
	return GracePriceCheckSummary{
		ProdID:    ev.ProdID,
		Country:   ev.Country,
		Applies:   res.Applies,
		OK:        len(res.Gaps) == 0,
		Checked:   res.Checked,
		Gaps:      res.Gaps,
		Available: available,
	}
}

func renderGracePriceHuman(out io.Writer, s GracePriceCheckSummary) {
	_, _ = fmt.Fprintf(out, "Grace price check for event %d (%s)\n", s.ProdID, s.Country)
	if !s.Applies {
		_, _ = fmt.Fprintln(out, "Event is not sold in the Japan market, nothing to convert.")
		return
	}
	if s.OK {
		_, _ = fmt.Fprintf(out, "All %d tier(s) have a grace price.\n", s.Checked)
		return
	}
	_, _ = fmt.Fprintf(out, "%d of %d tier(s) will stay in EUR:\n", len(s.Gaps), s.Checked)
	for _, gap := range s.Gaps {
		_, _ = fmt.Fprintf(out, " - %s (%s) key %s\n", gap.Tier, gap.Reason, gap.StorageKey)
	}
}
