package tickets

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Attendance enumerates the attendance state recorded on a ticket.
type Attendance string

const (
	AttendanceAttended   Attendance = "Attended"
	AttendanceUnattended Attendance = "Unattended"
	AttendanceFreeTicket Attendance = "Free Ticket"
)

// PaymentMethod enumerates how a ticket was paid for.
type PaymentMethod string

const (
	PaymentPaypal        PaymentMethod = "Paypal"
	PaymentCash          PaymentMethod = "Cash"
	PaymentFreeTicket    PaymentMethod = "Free Ticket"
	PaymentOnlinePayment PaymentMethod = "Online Payment"
)

// Currency of a bucket's prices.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyJPY Currency = "JPY"
)

// DefaultTier is shown for buckets without a tier level.
const DefaultTier = "Standard"

// RawTicketRow is one pre-joined, EUR-denominated order line from the order warehouse.
type RawTicketRow struct {
	OrderID       int64
	EventDate     time.Time
	ProdID        int64
	Attendance    Attendance
	PaymentMethod PaymentMethod
	TierLevel     *string
	UnitPrice     decimal.Decimal
	Quantity      int64
}

// Bucket aggregates tickets sharing attendance, payment method, tier and unit price.
type Bucket struct {
	Attendance    Attendance      `json:"attendance"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TierLevel     *string         `json:"tier_level"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int64           `json:"quantity"`
	TrainerFeePct decimal.Decimal `json:"trainer_fee_pct"`
	Currency      Currency        `json:"currency"`
	PriceTotal    decimal.Decimal `json:"price_total"`
}

// Tier returns the tier level, or DefaultTier when absent.
func (b Bucket) Tier() string {
	if b.TierLevel == nil {
		return DefaultTier
	}
	return *b.TierLevel
}

// HasTier reports whether the bucket carries an explicit tier level.
func (b Bucket) HasTier() bool {
	return b.TierLevel != nil
}

// Attended reports whether the bucket holds attended tickets.
func (b Bucket) Attended() bool {
	return b.Attendance == AttendanceAttended
}

// Reprice sets the unit price and recomputes the bucket total.
func (b *Bucket) Reprice(unitPrice decimal.Decimal, currency Currency) {
	b.UnitPrice = unitPrice
	b.Currency = currency
	b.PriceTotal = unitPrice.Mul(decimal.NewFromInt(b.Quantity))
}

// ValidateRow reports why a row cannot be aggregated, or nil.
func ValidateRow(row RawTicketRow) error {
	if row.Quantity < 0 {
		return fmt.Errorf("tickets: order %d has negative quantity %d", row.OrderID, row.Quantity)
	}
	return nil
}

// FilterValid splits rows into those that can be aggregated and those that cannot.
// The order of both slices follows rows.
func FilterValid(rows []RawTicketRow) (valid, rejected []RawTicketRow) {
	valid = make([]RawTicketRow, 0, len(rows))
	for _, row := range rows {
		if ValidateRow(row) != nil {
			rejected = append(rejected, row)
			continue
		}
		valid = append(valid, row)
	}
	return valid, rejected
}
