package warehouse

import (
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/salsation/eventfin/internal/tickets"
)

type scannedRow struct {
	orderID    int64
	eventDate  sql.NullTime
	prodID     int64
	attendance string
	payment    string
	tier       sql.NullString
	unitPrice  decimal.NullDecimal
	quantity   sql.NullInt64
}

// toRow maps warehouse values onto a ticket row. A blank tier is treated as absent.
func (r scannedRow) toRow() tickets.RawTicketRow {
	row := tickets.RawTicketRow{
		OrderID:       r.orderID,
		ProdID:        r.prodID,
		Attendance:    tickets.Attendance(strings.TrimSpace(r.attendance)),
		PaymentMethod: tickets.PaymentMethod(strings.TrimSpace(r.payment)),
		UnitPrice:     decimal.Zero,
	}
	if r.eventDate.Valid {
		row.EventDate = r.eventDate.Time
	}
	if r.tier.Valid {
		if tier := strings.TrimSpace(r.tier.String); tier != "" {
			row.TierLevel = &tier
		}
	}
	if r.unitPrice.Valid {
		row.UnitPrice = r.unitPrice.Decimal
	}
	if r.quantity.Valid {
		row.Quantity = r.quantity.Int64
	}
	return row
}
