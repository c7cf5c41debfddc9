// Package source reads newly qualifying sales rows from the relational
// database.
package source

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConnect is returned when the database cannot be reached.
	ErrConnect = errors.New("database connection failed")

	// ErrQuery is returned when the incremental query or row scan fails.
	ErrQuery = errors.New("sales query failed")
)

// SaleRow is one sales record joined with its lot detail. Immutable
// once fetched; lives for the duration of one run.
type SaleRow struct {
	SaleID         string
	SoldAt         time.Time
	Gross          string
	PaymentType    string
	ClientRef      string
	LotNumber      string
	LotDescription string
	HammerPrice    string
}

// Columns names every exported column, in serialization order.
func Columns() []string {
	return []string{
		"SaleID",
		"SoldAt",
		"Gross",
		"PaymentType",
		"ClientRef",
		"LotNumber",
		"LotDescription",
		"HammerPrice",
	}
}

// Fields returns the row values in Columns order.
func (r SaleRow) Fields() []string {
	return []string{
		r.SaleID,
		r.SoldAt.Format(time.RFC3339),
		r.Gross,
		r.PaymentType,
		r.ClientRef,
		r.LotNumber,
		r.LotDescription,
		r.HammerPrice,
	}
}

// MaxSoldAt returns the latest timestamp in rows. Rows arrive ordered
// ascending, but this scans all of them rather than trusting the tail.
func MaxSoldAt(rows []SaleRow) time.Time {
	var max time.Time
	for _, r := range rows {
		if r.SoldAt.After(max) {
			max = r.SoldAt
		}
	}
	return max
}

// SalesSource fetches rows with a timestamp strictly after the given
// watermark, ordered by timestamp ascending. Read-only.
type SalesSource interface {
	FetchSince(ctx context.Context, since time.Time) ([]SaleRow, error)
	Close() error
}
