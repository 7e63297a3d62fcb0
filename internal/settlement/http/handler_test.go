package settlementhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/expenses"
	"github.com/salsation/eventfin/internal/settlement"
	"github.com/salsation/eventfin/internal/splits"
)

type stubReports struct {
	computeFn func(ctx context.Context, prodID int64) (settlement.Report, error)
}

func (s *stubReports) Compute(ctx context.Context, prodID int64) (settlement.Report, error) {
	return s.computeFn(ctx, prodID)
}

type stubExpenses struct {
	rows  []expenses.Expense
	saved []expenses.Expense
	err   error
}

func (s *stubExpenses) List(context.Context, int64) ([]expenses.Expense, error) { return s.rows, s.err }

func (s *stubExpenses) Save(_ context.Context, e expenses.Expense) (expenses.Expense, error) {
	if s.err != nil {
		return expenses.Expense{}, s.err
	}
	s.saved = append(s.saved, e)
	return e, nil
}

func (s *stubExpenses) Delete(context.Context, int64, int64) error { return s.err }

type stubSplits struct {
	rows    []splits.TrainerSplit
	saveErr error
	checked splits.TrainerSplit
}

func (s *stubSplits) List(context.Context, int64) ([]splits.TrainerSplit, error) { return s.rows, nil }

func (s *stubSplits) Check(_ context.Context, c splits.TrainerSplit) (splits.Validation, error) {
	s.checked = c
	return splits.ValidateTotal(splits.Merge(s.rows, c)), nil
}

func (s *stubSplits) Save(_ context.Context, c splits.TrainerSplit) (splits.TrainerSplit, error) {
	if s.saveErr != nil {
		return splits.TrainerSplit{}, s.saveErr
	}
	c.Recompute()
	return c, nil
}

func (s *stubSplits) Delete(context.Context, int64, int64) error { return splits.ErrNotFound }

type harness struct {
	reports  *stubReports
	expenses *stubExpenses
	splits   *stubSplits
	router   chi.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reports: &stubReports{computeFn: func(ctx context.Context, prodID int64) (settlement.Report, error) {
			return settlement.Report{Event: event.Event{ProdID: prodID, ProdName: "Salsation Seminar"}}, nil
		}},
		expenses: &stubExpenses{},
		splits:   &stubSplits{},
	}
	handler := NewHandler(nil, h.reports, h.expenses, h.splits, 2)
	h.router = chi.NewRouter()
	handler.MountRoutes(h.router)
	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func TestGetSettlementReturnsReport(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodGet, "/events/42/settlement", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var report settlement.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, int64(42), report.Event.ProdID)
}

func TestGetSettlementUnknownEvent(t *testing.T) {
	h := newHarness(t)
	h.reports.computeFn = func(context.Context, int64) (settlement.Report, error) {
		return settlement.Report{}, fmt.Errorf("settlement: load event: %w", event.ErrEventNotFound)
	}

	rr := h.do(http.MethodGet, "/events/7/settlement", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetSettlementHidesStoreFailures(t *testing.T) {
	h := newHarness(t)
	h.reports.computeFn = func(context.Context, int64) (settlement.Report, error) {
		return settlement.Report{}, errors.New("dial tcp 10.0.0.5:3306: connection refused")
	}

	rr := h.do(http.MethodGet, "/events/7/settlement", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestGetSettlementRejectsBadID(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/events/abc/settlement", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/events/0/settlement", "").Code)
}

func TestGetSettlementIsRateLimited(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/events/42/settlement", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/events/42/settlement", "").Code)
}

func TestListExpensesIncludesTotal(t *testing.T) {
	h := newHarness(t)
	h.expenses.rows = []expenses.Expense{
		{ProdID: 5, RowID: 1, Amount: decimal.RequireFromString("10.50")},
		{ProdID: 5, RowID: 2, Amount: decimal.RequireFromString("4.50")},
	}

	rr := h.do(http.MethodGet, "/events/5/expenses", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body expenseList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Expenses, 2)
	assert.Equal(t, "15", body.Total.String())
}

func TestPutExpenseUsesPathEvent(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodPut, "/events/5/expenses", `{"row_id":3,"description":"Hall","amount":"250.00"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, h.expenses.saved, 1)
	assert.Equal(t, int64(5), h.expenses.saved[0].ProdID)
	assert.Equal(t, "250", h.expenses.saved[0].Amount.String())
}

func TestPutExpenseValidationFailure(t *testing.T) {
	h := newHarness(t)
	h.expenses.err = fmt.Errorf("%w: RowID required", expenses.ErrInvalid)

	rr := h.do(http.MethodPut, "/events/5/expenses", `{"description":"Hall","amount":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPutExpenseMalformedBody(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodPut, "/events/5/expenses", `{"row_id":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteExpense(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/events/5/expenses/1", "").Code)

	h.expenses.err = expenses.ErrNotFound
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/events/5/expenses/1", "").Code)
}

func TestListSplitsReportsOverflowWithoutCorrecting(t *testing.T) {
	h := newHarness(t)
	h.splits.rows = []splits.TrainerSplit{
		{ProdID: 8, RowID: 1, Name: "Ana", Percent: decimal.NewFromInt(70)},
		{ProdID: 8, RowID: 2, Name: "Ben", Percent: decimal.NewFromInt(40)},
	}

	rr := h.do(http.MethodGet, "/events/8/splits", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body splitList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Validation.Valid)
	assert.Equal(t, "110", body.Validation.Total.String())
	assert.Equal(t, "70", body.Splits[0].Percent.String())
}

func TestPutSplitOverLimitIsUnprocessable(t *testing.T) {
	h := newHarness(t)
	h.splits.saveErr = fmt.Errorf("%w: total 101", splits.ErrInvalidSplitTotal)

	rr := h.do(http.MethodPut, "/events/8/splits", `{"row_id":2,"name":"Ben","percent":41}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "101")
}

func TestPutSplitReturnsPayable(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodPut, "/events/8/splits", `{"row_id":1,"name":"Ana","percent":60,"trainer_fee":"500","cash_received":"120"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var saved splits.TrainerSplit
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &saved))
	assert.Equal(t, "380", saved.Payable.String())
}

func TestValidateSplit(t *testing.T) {
	h := newHarness(t)
	h.splits.rows = []splits.TrainerSplit{{ProdID: 8, RowID: 1, Percent: decimal.NewFromInt(60)}}

	rr := h.do(http.MethodPost, "/events/8/splits/validate", `{"row_id":2,"name":"Ben","percent":40}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var result splits.Validation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, "100", result.Total.String())
	assert.Equal(t, int64(8), h.splits.checked.ProdID)
}

func TestDeleteSplitMissing(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/events/8/splits/3", "").Code)
}
