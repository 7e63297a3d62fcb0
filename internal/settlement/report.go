package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/expenses"
	"github.com/salsation/eventfin/internal/feeparam"
	"github.com/salsation/eventfin/internal/graceprice"
	"github.com/salsation/eventfin/internal/overview"
	"github.com/salsation/eventfin/internal/splits"
	"github.com/salsation/eventfin/internal/tickets"
	"github.com/salsation/eventfin/internal/trainerfee"
)

// DiagnosticKind names a data-quality gap absorbed during computation.
type DiagnosticKind string

const (
	DiagnosticMissingFeeParam   DiagnosticKind = "MISSING_FEE_PARAM"
	DiagnosticMissingGracePrice DiagnosticKind = "MISSING_GRACE_PRICE"
	DiagnosticInvalidTicketRow  DiagnosticKind = "INVALID_TICKET_ROW"
)

// Diagnostic records one reference key that had no usable row, or one ticket row left
// out of the aggregation.
type Diagnostic struct {
	Kind DiagnosticKind `json:"kind"`
	Key  string         `json:"key"`
}

// Report is the settlement of one event.
type Report struct {
	ID              uuid.UUID               `json:"id"`
	Event           event.Event             `json:"event"`
	Classification  event.Classification    `json:"classification"`
	Strategy        trainerfee.StrategyName `json:"strategy"`
	Buckets         []tickets.Bucket        `json:"buckets"`
	Rows            []overview.Row          `json:"rows"`
	Totals          overview.Totals         `json:"totals"`
	Fee             trainerfee.Result       `json:"fee"`
	Overview        overview.EventOverview  `json:"overview"`
	Expenses        []expenses.Expense      `json:"expenses"`
	Splits          []splits.TrainerSplit   `json:"splits"`
	SplitValidation splits.Validation       `json:"split_validation"`
	Converted       int                     `json:"converted_buckets"`
	Diagnostics     []Diagnostic            `json:"diagnostics"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Input gathers everything a report is computed from.
type Input struct {
	Event     event.Event
	Rows      []tickets.RawTicketRow
	Reference Reference
	Expenses  []expenses.Expense
	Splits    []splits.TrainerSplit
}

var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("eventfin/settlement-report"))

// ReportID derives a stable report id from the cache key, which embeds the input fingerprint.
func ReportID(generation string) uuid.UUID {
	return uuid.NewSHA1(reportNamespace, []byte(generation))
}

// Assemble runs the settlement pipeline on in. observe, when set, sees each distinct
// diagnostic once. Rows that cannot be aggregated are skipped and reported.
func Assemble(in Input, opts trainerfee.Options, observe func(Diagnostic)) Report {
	diagnostics := make([]Diagnostic, 0)
	seen := make(map[Diagnostic]struct{})
	record := func(d Diagnostic) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		diagnostics = append(diagnostics, d)
		if observe != nil {
			observe(d)
		}
	}

	valid, rejected := tickets.FilterValid(in.Rows)
	for _, row := range rejected {
		record(Diagnostic{Kind: DiagnosticInvalidTicketRow, Key: fmt.Sprintf("order %d", row.OrderID)})
	}
	buckets := tickets.Aggregate(valid)

	feeparam.Resolver{
		Snapshot: in.Reference.Fees,
		OnMissing: func(k feeparam.Key) {
			record(Diagnostic{Kind: DiagnosticMissingFeeParam, Key: k.String()})
		},
	}.Apply(in.Event, buckets)

	converted := graceprice.Converter{
		Table: in.Reference.Grace,
		OnMissing: func(k graceprice.Key) {
			record(Diagnostic{Kind: DiagnosticMissingGracePrice, Key: k.StorageKey()})
		},
	}.Apply(in.Event, buckets)

	strategy := trainerfee.Select(in.Event.Trainer1, opts)
	fee := strategy.Compute(buckets, expenses.Total(in.Expenses))
	rows, totals := overview.Summarize(buckets)

	splitRows := make([]splits.TrainerSplit, len(in.Splits))
	copy(splitRows, in.Splits)
	for i := range splitRows {
		splitRows[i].Recompute()
	}
	expenseRows := in.Expenses
	if expenseRows == nil {
		expenseRows = []expenses.Expense{}
	}

	return Report{
		Event:           in.Event,
		Classification:  in.Event.Classification(),
		Strategy:        strategy.Name(),
		Buckets:         buckets,
		Rows:            rows,
		Totals:          totals,
		Fee:             fee,
		Overview:        overview.Compute(buckets, fee),
		Expenses:        expenseRows,
		Splits:          splitRows,
		SplitValidation: splits.ValidateTotal(splitRows),
		Converted:       converted,
		Diagnostics:     diagnostics,
	}
}
