package overview

import (
	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/tickets"
	"github.com/salsation/eventfin/internal/trainerfee"
)

// CashEquivalent is the payment method collected on site by the trainer.
const CashEquivalent = tickets.PaymentCash

// Row is one line of the ticket summary table.
type Row struct {
	Attendance    tickets.Attendance    `json:"attendance"`
	PaymentMethod tickets.PaymentMethod `json:"payment_method"`
	TierLevel     string                `json:"tier_level"`
	Currency      tickets.Currency      `json:"currency"`
	SumQuantity   int64                 `json:"sum_quantity"`
	UnitPrice     decimal.Decimal       `json:"unit_price"`
	SumPriceTotal decimal.Decimal       `json:"sum_price_total"`
	TrainerFeePct decimal.Decimal       `json:"trainer_fee_pct"`
	SumTrainerFee decimal.Decimal       `json:"sum_trainer_fee"`
}

// Totals are the column-wise sums of the summary rows.
type Totals struct {
	Quantity   int64           `json:"quantity"`
	PriceTotal decimal.Decimal `json:"price_total"`
	TrainerFee decimal.Decimal `json:"trainer_fee"`
}

// EventOverview holds the settlement figures shown to finance staff.
// Receivable > 0 means the business collects from the trainer; < 0 means it owes the trainer.
type EventOverview struct {
	CashSales            decimal.Decimal `json:"cash_sales"`
	AdjustedTrainerFee   decimal.Decimal `json:"adjusted_trainer_fee"`
	Balance              decimal.Decimal `json:"balance"`
	Receivable           decimal.Decimal `json:"receivable"`
	TotalExpenses        decimal.Decimal `json:"total_expenses"`
	Margin               decimal.Decimal `json:"margin"`
	TrainerFeePercentage decimal.Decimal `json:"trainer_fee_percentage"`
}

// Summarize produces one row per bucket plus grand totals.
func Summarize(buckets []tickets.Bucket) ([]Row, Totals) {
	rows := make([]Row, 0, len(buckets))
	totals := Totals{PriceTotal: decimal.Zero, TrainerFee: decimal.Zero}
	for _, b := range buckets {
		fee := b.PriceTotal.Mul(b.TrainerFeePct)
		rows = append(rows, Row{
			Attendance:    b.Attendance,
			PaymentMethod: b.PaymentMethod,
			TierLevel:     b.Tier(),
			Currency:      b.Currency,
			SumQuantity:   b.Quantity,
			UnitPrice:     b.UnitPrice,
			SumPriceTotal: b.PriceTotal,
			TrainerFeePct: b.TrainerFeePct,
			SumTrainerFee: fee,
		})
		totals.Quantity += b.Quantity
		totals.PriceTotal = totals.PriceTotal.Add(b.PriceTotal)
		totals.TrainerFee = totals.TrainerFee.Add(fee)
	}
	return rows, totals
}

// CashSales sums the revenue of cash-paid buckets.
func CashSales(buckets []tickets.Bucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		if b.PaymentMethod == CashEquivalent {
			total = total.Add(b.PriceTotal)
		}
	}
	return total
}

// Compute derives the overview from the buckets and the trainer fee result.
func Compute(buckets []tickets.Bucket, fee trainerfee.Result) EventOverview {
	cash := CashSales(buckets)
	return EventOverview{
		CashSales:            cash,
		AdjustedTrainerFee:   fee.AdjustedFee,
		Balance:              cash.Sub(fee.AdjustedFee),
		Receivable:           fee.AdjustedFee.Sub(cash),
		TotalExpenses:        fee.TotalExpenses,
		Margin:               fee.Margin,
		TrainerFeePercentage: fee.FeePercentage,
	}
}
