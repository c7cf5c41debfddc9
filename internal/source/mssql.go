package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
)

// fetchQuery selects sales joined with lot details strictly after the
// watermark. The strict inequality is what keeps already-exported rows
// out of the next run.
const fetchQuery = `
SELECT
    s.saleID,
    s.soldAt,
    FORMAT(s.gross, 'N2')       AS gross,
    ISNULL(s.paymentType, '')   AS paymentType,
    ISNULL(s.clientRef, '')     AS clientRef,
    l.lotNumber,
    ISNULL(l.description, '')   AS description,
    FORMAT(l.hammerPrice, 'N2') AS hammerPrice
FROM tblSales s
JOIN tblLots l ON l.lotID = s.lotID
WHERE s.soldAt > @since
ORDER BY s.soldAt ASC`

// Config holds SQL Server connection settings.
type Config struct {
	Server   string
	Database string
	User     string
	Password string
}

// SQLSource implements SalesSource against SQL Server.
type SQLSource struct {
	db  *sql.DB
	log *slog.Logger
}

// Open connects to the database and verifies the connection.
func Open(cfg Config) (*SQLSource, error) {
	dsn := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Server,
		RawQuery: url.Values{"database": {cfg.Database}}.Encode(),
	}

	db, err := sql.Open("sqlserver", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *SQLSource {
	return &SQLSource{
		db:  db,
		log: slog.With("component", "source"),
	}
}

// FetchSince runs the incremental query and scans the result set.
func (s *SQLSource) FetchSince(ctx context.Context, since time.Time) ([]SaleRow, error) {
	rows, err := s.db.QueryContext(ctx, fetchQuery, sql.Named("since", since))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer rows.Close()

	var result []SaleRow
	for rows.Next() {
		var r SaleRow
		if err := rows.Scan(
			&r.SaleID,
			&r.SoldAt,
			&r.Gross,
			&r.PaymentType,
			&r.ClientRef,
			&r.LotNumber,
			&r.LotDescription,
			&r.HammerPrice,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrQuery, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	s.log.Debug("fetched sales rows", "since", since.Format(time.RFC3339), "count", len(result))
	return result, nil
}

// Close releases the database handle.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
