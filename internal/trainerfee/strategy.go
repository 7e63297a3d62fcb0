package trainerfee

import (
	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/tickets"
)

// StrategyName identifies a fee strategy in reports.
type StrategyName string

const (
	StrategyStandard    StrategyName = "STANDARD"
	StrategyLeadTrainer StrategyName = "LEAD_TRAINER"
)

var hundred = decimal.NewFromInt(100)

// Result carries the trainer fee figures of one event.
type Result struct {
	Strategy      StrategyName    `json:"strategy"`
	OriginalFee   decimal.Decimal `json:"original_fee"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Margin        decimal.Decimal `json:"margin"`
	AdjustedFee   decimal.Decimal `json:"adjusted_fee"`
}

// Strategy computes the trainer fee of an event from its enriched buckets.
type Strategy interface {
	Name() StrategyName
	Compute(buckets []tickets.Bucket, totalExpenses decimal.Decimal) Result
}

// TicketFeeFunc returns the trainer's share of a single bucket.
type TicketFeeFunc func(b tickets.Bucket) decimal.Decimal

// DefaultTicketFee is PriceTotal × TrainerFeePct.
func DefaultTicketFee(b tickets.Bucket) decimal.Decimal {
	return b.PriceTotal.Mul(b.TrainerFeePct)
}

// Options tune strategy selection.
type Options struct {
	// TicketFee overrides the per-bucket fee of the standard strategy.
	TicketFee TicketFeeFunc
}

// Select picks the strategy for the event's trainer.
func Select(trainer string, opts Options) Strategy {
	if event.IsLeadTrainer(trainer) {
		return LeadTrainer{}
	}
	return Standard{TicketFee: opts.TicketFee}
}

// Standard bakes the fee percentage into every ticket before expenses are deducted.
type Standard struct {
	TicketFee TicketFeeFunc
}

// Name implements Strategy.
func (Standard) Name() StrategyName { return StrategyStandard }

// Compute implements Strategy. AdjustedFee equals the margin.
func (s Standard) Compute(buckets []tickets.Bucket, totalExpenses decimal.Decimal) Result {
	fee := s.TicketFee
	if fee == nil {
		fee = DefaultTicketFee
	}
	original := decimal.Zero
	for _, b := range buckets {
		original = original.Add(fee(b))
	}
	pct := decimal.Zero
	if revenue := tickets.Revenue(buckets); !revenue.IsZero() {
		pct = original.Div(revenue).Mul(hundred)
	}
	margin := original.Sub(totalExpenses)
	return Result{
		Strategy:      StrategyStandard,
		OriginalFee:   original,
		FeePercentage: pct,
		TotalExpenses: totalExpenses,
		Margin:        margin,
		AdjustedFee:   margin,
	}
}

// LeadTrainer takes the full revenue as gross and applies the attended-weighted
// percentage to the margin, after expenses.
type LeadTrainer struct{}

// Name implements Strategy.
func (LeadTrainer) Name() StrategyName { return StrategyLeadTrainer }

// Compute implements Strategy.
func (LeadTrainer) Compute(buckets []tickets.Bucket, totalExpenses decimal.Decimal) Result {
	original := tickets.Revenue(buckets)
	pct := WeightedAttendedPercentage(buckets)
	margin := original.Sub(totalExpenses)
	return Result{
		Strategy:      StrategyLeadTrainer,
		OriginalFee:   original,
		FeePercentage: pct,
		TotalExpenses: totalExpenses,
		Margin:        margin,
		AdjustedFee:   margin.Mul(pct).Div(hundred),
	}
}

// WeightedAttendedPercentage is Σ(pct × total) / Σ(total) × 100 over attended buckets.
// It is 100 when there is no attended revenue.
func WeightedAttendedPercentage(buckets []tickets.Bucket) decimal.Decimal {
	weighted := decimal.Zero
	revenue := decimal.Zero
	for _, b := range buckets {
		if !b.Attended() {
			continue
		}
		weighted = weighted.Add(b.TrainerFeePct.Mul(b.PriceTotal))
		revenue = revenue.Add(b.PriceTotal)
	}
	if revenue.IsZero() {
		return hundred
	}
	return weighted.Div(revenue).Mul(hundred)
}
