package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/settlement"
)

// ExitPartial is returned when some events could not be recomputed.
const ExitPartial = 2

// ReportComputer computes the settlement report of one event.
type ReportComputer interface {
	Compute(ctx context.Context, prodID int64) (settlement.Report, error)
}

// RecomputeCLI recomputes settlement reports in bulk, for instance after a fee table edit.
type RecomputeCLI struct {
	reports ReportComputer
}

// NewRecomputeCLI constructs the helper.
func NewRecomputeCLI(reports ReportComputer) *RecomputeCLI {
	return &RecomputeCLI{reports: reports}
}

// RecomputeOptions defines the flags of the recompute command.
type RecomputeOptions struct {
	Events       string
	ShowProgress bool
	Stdout       io.Writer
	Stderr       io.Writer
}

// RecomputeLine is the JSON line emitted per event.
type RecomputeLine struct {
	ProdID      int64           `json:"prod_id"`
	ReportID    string          `json:"report_id,omitempty"`
	Strategy    string          `json:"strategy,omitempty"`
	AdjustedFee decimal.Decimal `json:"adjusted_fee"`
	Receivable  decimal.Decimal `json:"receivable"`
	Diagnostics int             `json:"diagnostics"`
	Error       string          `json:"error,omitempty"`
}

// RecomputeCommand computes every listed event and prints one JSON line each.
func (c *RecomputeCLI) RecomputeCommand(ctx context.Context, opts RecomputeOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	ids, err := ParseEventIDs(opts.Events)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "recompute: %v\n", err)
		return 1
	}

	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(opts.Stderr),
		progressbar.OptionSetDescription("recompute"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(opts.ShowProgress),
	)
	enc := json.NewEncoder(opts.Stdout)
	failed := 0
	for _, id := range ids {
		line := RecomputeLine{ProdID: id}
		report, err := c.reports.Compute(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				_, _ = fmt.Fprintln(opts.Stderr, "recompute: cancelled")
				return 1
			}
			failed++
			line.Error = err.Error()
		} else {
			line.ReportID = report.ID.String()
			line.Strategy = string(report.Strategy)
			line.AdjustedFee = report.Fee.AdjustedFee
			line.Receivable = report.Overview.Receivable
			line.Diagnostics = len(report.Diagnostics)
		}
		if err := enc.Encode(line); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "recompute: encode json: %v\n", err)
			return 1
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if failed > 0 {
		_, _ = fmt.Fprintf(opts.Stderr, "recompute: %d of %d event(s) failed\n", failed, len(ids))
		return ExitPartial
	}
	return 0
}

// ParseEventIDs parses a comma separated list of positive event ids. Duplicates are dropped.
func ParseEventIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	seen := make(map[int64]struct{}, len(parts))
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid event id %q", part)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("-events is required")
	}
	return ids, nil
}
