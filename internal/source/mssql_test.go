package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockSource(t *testing.T) (*SQLSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func saleColumns() []string {
	return []string{
		"saleID", "soldAt", "gross", "paymentType",
		"clientRef", "lotNumber", "description", "hammerPrice",
	}
}

func TestFetchSincePassesWatermarkAsExclusiveBound(t *testing.T) {
	src, mock := newMockSource(t)

	since := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE\s+s\.soldAt > @since`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows(saleColumns()))

	rows, err := src.FetchSince(context.Background(), since)
	if err != nil {
		t.Fatalf("FetchSince failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("FetchSince returned %d rows, want 0", len(rows))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFetchSinceOrdersAscending(t *testing.T) {
	src, mock := newMockSource(t)

	base := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	mockRows := sqlmock.NewRows(saleColumns()).
		AddRow("S-1001", base, "1,250.00", "credit card", "C-17", "42", "Oak dresser", "1,200.00").
		AddRow("S-1002", base.Add(2*time.Hour), "310.00", "cheque", "C-04", "43", "Silver teapot", "300.00").
		AddRow("S-1003", base.Add(26*time.Hour), "95.50", "cash", "C-22", "44", "Print, framed", "90.00")

	mock.ExpectQuery(`ORDER BY\s+s\.soldAt ASC`).
		WillReturnRows(mockRows)

	rows, err := src.FetchSince(context.Background(), watermarkBefore(base))
	if err != nil {
		t.Fatalf("FetchSince failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("FetchSince returned %d rows, want 3", len(rows))
	}

	for i := 1; i < len(rows); i++ {
		if rows[i].SoldAt.Before(rows[i-1].SoldAt) {
			t.Errorf("rows out of order at %d: %v before %v", i, rows[i].SoldAt, rows[i-1].SoldAt)
		}
	}
	if rows[0].SaleID != "S-1001" || rows[0].LotDescription != "Oak dresser" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}

	max := MaxSoldAt(rows)
	if !max.Equal(base.Add(26 * time.Hour)) {
		t.Errorf("MaxSoldAt = %v, want %v", max, base.Add(26*time.Hour))
	}
}

func TestFetchSinceQueryError(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("login failed"))

	_, err := src.FetchSince(context.Background(), time.Now())
	if !errors.Is(err, ErrQuery) {
		t.Errorf("FetchSince error = %v, want ErrQuery", err)
	}
}

func watermarkBefore(t time.Time) time.Time {
	return t.Add(-24 * time.Hour)
}
