package perf

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/expenses"
	"github.com/salsation/eventfin/internal/feeparam"
	"github.com/salsation/eventfin/internal/settlement"
	settlementhttp "github.com/salsation/eventfin/internal/settlement/http"
	"github.com/salsation/eventfin/internal/splits"
	"github.com/salsation/eventfin/internal/tickets"
	"github.com/salsation/eventfin/internal/trainerfee"
)

var tiers = []string{"Early Bird", "Regular", "Late"}

// largeEvent returns an event with n order lines spread over every tier, attendance and method.
func largeEvent(n int) (event.Event, []tickets.RawTicketRow) {
	ev := event.Event{ProdID: 1, ProdName: "Salsation Instructor Training Berlin", Country: "Germany", Venue: "Berlin"}
	attendances := []tickets.Attendance{tickets.AttendanceAttended, tickets.AttendanceUnattended}
	methods := []tickets.PaymentMethod{tickets.PaymentPaypal, tickets.PaymentCash, tickets.PaymentOnlinePayment}
	rows := make([]tickets.RawTicketRow, 0, n)
	for i := 0; i < n; i++ {
		tier := tiers[i%len(tiers)]
		rows = append(rows, tickets.RawTicketRow{
			OrderID:       int64(i + 1),
			ProdID:        1,
			Attendance:    attendances[i%len(attendances)],
			PaymentMethod: methods[i%len(methods)],
			TierLevel:     &tier,
			UnitPrice:     decimal.NewFromInt(int64(50 + 15*(i%len(tiers)))),
			Quantity:      1,
		})
	}
	return ev, rows
}

func reference() settlement.Reference {
	return settlement.Reference{Fees: feeparam.NewSnapshot([]feeparam.FeeParam{
		{Key: "Salsation-Instructor training-Berlin-Attended", Percent: decimal.NewFromInt(70)},
		{Key: "Salsation-Instructor training-Berlin-Unattended", Percent: decimal.NewFromInt(35)},
	})}
}

func BenchmarkAssemble(b *testing.B) {
	ev, rows := largeEvent(2000)
	in := settlement.Input{Event: ev, Rows: rows, Reference: reference()}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = settlement.Assemble(in, trainerfee.Options{}, nil)
	}
}

type eventSource struct {
	ev   event.Event
	rows []tickets.RawTicketRow
}

func (s eventSource) GetEvent(context.Context, int64) (event.Event, error) { return s.ev, nil }

func (s eventSource) GetRawTicketRows(context.Context, int64) ([]tickets.RawTicketRow, error) {
	return s.rows, nil
}

type referenceSource struct{}

func (referenceSource) LoadReference(context.Context) (settlement.Reference, error) {
	return reference(), nil
}

type emptyExpenses struct{}

func (emptyExpenses) List(context.Context, int64) ([]expenses.Expense, error) { return nil, nil }

type emptySplits struct{}

func (emptySplits) List(context.Context, int64) ([]splits.TrainerSplit, error) { return nil, nil }

func TestSettlementLatencyTargets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ev, rows := largeEvent(2000)
	cache := settlement.NewCache(client, time.Minute)
	reports := settlement.NewService(settlement.Sources{
		Events:    eventSource{ev: ev, rows: rows},
		Reference: referenceSource{},
		Expenses:  emptyExpenses{},
		Splits:    emptySplits{},
	}, cache, nil)
	router := chi.NewRouter()
	settlementhttp.NewHandler(nil, reports, nil, nil, 10000).MountRoutes(router)

	get := func() time.Duration {
		start := time.Now()
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/events/%d/settlement", ev.ProdID), nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
		}
		return time.Since(start)
	}

	var cold, cached []time.Duration
	for i := 0; i < 10; i++ {
		if err := cache.Invalidate(context.Background(), ev.ProdID); err != nil {
			t.Fatalf("invalidate: %v", err)
		}
		cold = append(cold, get())
		cached = append(cached, get())
	}

	scenarios := []struct {
		name      string
		samples   []time.Duration
		threshold time.Duration
	}{
		{name: "cached", samples: cached, threshold: 500 * time.Millisecond},
		{name: "cold", samples: cold, threshold: 2 * time.Second},
	}
	for _, scenario := range scenarios {
		p95 := percentile95(scenario.samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
