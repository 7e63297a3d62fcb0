// Package warehouse reads events and pre-joined ticket rows from the MySQL order warehouse.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/salsation/eventfin/internal/event"
	"github.com/salsation/eventfin/internal/tickets"
)

// Open connects to the warehouse. dsn may be a native driver DSN or a mysql:// / mariadb:// URL.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("warehouse: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("warehouse: ping: %w", err)
	}
	return db, nil
}

// ParseDSN normalises dsn into a driver config. Times are parsed in UTC.
func ParseDSN(dsn string) (*mysql.Config, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, fmt.Errorf("warehouse: parse dsn: %w", err)
		}
		cfg := mysql.NewConfig()
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
			return nil, errors.New("warehouse: dsn requires user, host and database")
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.InterpolateParams = true
		return cfg, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: parse dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the settlement event source on top of the warehouse views.
type Store struct {
	db queryer
}

// NewStore constructs a store.
func NewStore(db queryer) *Store {
	return &Store{db: db}
}

// GetEvent returns the event metadata of a product.
func (s *Store) GetEvent(ctx context.Context, prodID int64) (event.Event, error) {
	var (
		ev      event.Event
		date    sql.NullTime
		country sql.NullString
		venue   sql.NullString
		trainer sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT prod_id, prod_name, event_date, country, venue, trainer_1
		FROM v_event_overview
		WHERE prod_id = ?`, prodID).Scan(&ev.ProdID, &ev.ProdName, &date, &country, &venue, &trainer)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, event.ErrEventNotFound
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("warehouse: get event: %w", err)
	}
	if date.Valid {
		ev.EventDate = date.Time
	}
	ev.Country = country.String
	ev.Venue = venue.String
	ev.Trainer1 = trainer.String
	return ev, nil
}

// GetRawTicketRows returns the EUR-denominated order lines of a product.
func (s *Store) GetRawTicketRows(ctx context.Context, prodID int64) ([]tickets.RawTicketRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, event_date, prod_id, attendance, payment_method, tier_level, unit_price, quantity
		FROM v_event_ticket_rows
		WHERE prod_id = ?
		ORDER BY order_id`, prodID)
	if err != nil {
		return nil, fmt.Errorf("warehouse: ticket rows: %w", err)
	}
	defer rows.Close()

	out := make([]tickets.RawTicketRow, 0)
	for rows.Next() {
		var r scannedRow
		if err := rows.Scan(&r.orderID, &r.eventDate, &r.prodID, &r.attendance, &r.payment, &r.tier, &r.unitPrice, &r.quantity); err != nil {
			return nil, fmt.Errorf("warehouse: scan ticket row: %w", err)
		}
		out = append(out, r.toRow())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: ticket rows: %w", err)
	}
	return out, nil
}
