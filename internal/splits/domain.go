package splits

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MaxTotalPercent is the ceiling for the summed split percentages of one event.
var MaxTotalPercent = decimal.NewFromInt(100)

var (
	// ErrInvalidSplitTotal blocks a save that would push the event above MaxTotalPercent.
	ErrInvalidSplitTotal = errors.New("splits: percent total exceeds 100")
	// ErrNotFound occurs when deleting a row that does not exist.
	ErrNotFound = errors.New("splits: row not found")
	// ErrInvalid wraps validation failures of a split row.
	ErrInvalid = errors.New("splits: invalid row")
)

// TrainerSplit is one co-trainer's share of an event. Figures are entered manually.
type TrainerSplit struct {
	ProdID       int64           `json:"prod_id" validate:"required,gt=0"`
	RowID        int64           `json:"row_id" validate:"required,gt=0"`
	Name         string          `json:"name" validate:"required,max=255"`
	Percent      decimal.Decimal `json:"percent"`
	TrainerFee   decimal.Decimal `json:"trainer_fee"`
	CashReceived decimal.Decimal `json:"cash_received"`
	Payable      decimal.Decimal `json:"payable"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Recompute refreshes the derived Payable.
func (s *TrainerSplit) Recompute() {
	s.Payable = s.TrainerFee.Sub(s.CashReceived)
}

// Validation is the outcome of ValidateTotal.
type Validation struct {
	Valid bool            `json:"valid"`
	Total decimal.Decimal `json:"total"`
}

// ValidateTotal checks that the split percentages do not exceed MaxTotalPercent.
func ValidateTotal(rows []TrainerSplit) Validation {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Percent)
	}
	return Validation{Valid: total.LessThanOrEqual(MaxTotalPercent), Total: total}
}

// Merge replaces the row with the candidate's RowID, or appends it.
func Merge(rows []TrainerSplit, candidate TrainerSplit) []TrainerSplit {
	out := make([]TrainerSplit, 0, len(rows)+1)
	replaced := false
	for _, r := range rows {
		if r.RowID == candidate.RowID {
			out = append(out, candidate)
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, candidate)
	}
	return out
}
