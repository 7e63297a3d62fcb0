package expenses

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a manually entered cost of an event.
type Expense struct {
	ProdID      int64           `json:"prod_id" validate:"required,gt=0"`
	RowID       int64           `json:"row_id" validate:"required,gt=0"`
	Description string          `json:"description" validate:"max=255"`
	Amount      decimal.Decimal `json:"amount"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

var (
	// ErrNotFound occurs when deleting a row that does not exist.
	ErrNotFound = errors.New("expenses: row not found")
	// ErrInvalid wraps validation failures of an expense row.
	ErrInvalid = errors.New("expenses: invalid row")
)

// Total sums the expense amounts.
func Total(rows []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}
