package settlementhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/expenses"
	"github.com/salsation/eventfin/internal/platform/httpx"
	"github.com/salsation/eventfin/internal/settlement"
	"github.com/salsation/eventfin/internal/splits"
)

type reportService interface {
	Compute(ctx context.Context, prodID int64) (settlement.Report, error)
}

type expenseService interface {
	List(ctx context.Context, prodID int64) ([]expenses.Expense, error)
	Save(ctx context.Context, e expenses.Expense) (expenses.Expense, error)
	Delete(ctx context.Context, prodID, rowID int64) error
}

type splitService interface {
	List(ctx context.Context, prodID int64) ([]splits.TrainerSplit, error)
	Check(ctx context.Context, candidate splits.TrainerSplit) (splits.Validation, error)
	Save(ctx context.Context, candidate splits.TrainerSplit) (splits.TrainerSplit, error)
	Delete(ctx context.Context, prodID, rowID int64) error
}

// Handler exposes settlement reports and the event ledgers as JSON.
type Handler struct {
	logger   *slog.Logger
	reports  reportService
	expenses expenseService
	splits   splitService
	limiter  func(http.Handler) http.Handler
}

// NewHandler constructs the handler. reportsPerMinute bounds report computations per client IP.
func NewHandler(logger *slog.Logger, reports reportService, exp expenseService, spl splitService, reportsPerMinute int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if reportsPerMinute <= 0 {
		reportsPerMinute = 30
	}
	limiter := httprate.Limit(reportsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "report rate limit exceeded")
		}),
	)
	return &Handler{logger: logger, reports: reports, expenses: exp, splits: spl, limiter: limiter}
}

// MountRoutes registers the event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/events/{prodID}", func(r chi.Router) {
		r.With(h.limiter).Get("/settlement", h.getSettlement)

		r.Get("/expenses", h.listExpenses)
		r.Put("/expenses", h.putExpense)
		r.Delete("/expenses/{rowID}", h.deleteExpense)

		r.Get("/splits", h.listSplits)
		r.Put("/splits", h.putSplit)
		r.Post("/splits/validate", h.validateSplit)
		r.Delete("/splits/{rowID}", h.deleteSplit)
	})
}

type expenseInput struct {
	RowID       int64           `json:"row_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type expenseList struct {
	Expenses []expenses.Expense `json:"expenses"`
	Total    decimal.Decimal    `json:"total"`
}

type splitInput struct {
	RowID        int64           `json:"row_id"`
	Name         string          `json:"name"`
	Percent      decimal.Decimal `json:"percent"`
	TrainerFee   decimal.Decimal `json:"trainer_fee"`
	CashReceived decimal.Decimal `json:"cash_received"`
}

func (in splitInput) toSplit(prodID int64) splits.TrainerSplit {
	return splits.TrainerSplit{
		ProdID:       prodID,
		RowID:        in.RowID,
		Name:         in.Name,
		Percent:      in.Percent,
		TrainerFee:   in.TrainerFee,
		CashReceived: in.CashReceived,
	}
}

type splitList struct {
	Splits     []splits.TrainerSplit `json:"splits"`
	Validation splits.Validation     `json:"validation"`
}

func (h *Handler) getSettlement(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	report, err := h.reports.Compute(r.Context(), prodID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	rows, err := h.expenses.List(r.Context(), prodID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expenseList{Expenses: rows, Total: expenses.Total(rows)})
}

func (h *Handler) putExpense(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	var in expenseInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	saved, err := h.expenses.Save(r.Context(), expenses.Expense{
		ProdID:      prodID,
		RowID:       in.RowID,
		Description: in.Description,
		Amount:      in.Amount,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	rowID, ok := h.pathID(w, r, "rowID")
	if !ok {
		return
	}
	if err := h.expenses.Delete(r.Context(), prodID, rowID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSplits(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	rows, err := h.splits.List(r.Context(), prodID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, splitList{Splits: rows, Validation: splits.ValidateTotal(rows)})
}

func (h *Handler) putSplit(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	var in splitInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	saved, err := h.splits.Save(r.Context(), in.toSplit(prodID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) validateSplit(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	var in splitInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	result, err := h.splits.Check(r.Context(), in.toSplit(prodID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) deleteSplit(w http.ResponseWriter, r *http.Request) {
	prodID, ok := h.pathID(w, r, "prodID")
	if !ok {
		return
	}
	rowID, ok := h.pathID(w, r, "rowID")
	if !ok {
		return
	}
	if err := h.splits.Delete(r.Context(), prodID, rowID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, expenses.ErrNotFound),
		errors.Is(err, splits.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, expenses.ErrInvalid), errors.Is(err, splits.ErrInvalid):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, splits.ErrInvalidSplitTotal):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err))
	default:
		h.logger.Error("settlement request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
