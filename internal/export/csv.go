// Package export renders a result set into the payload formats the
// exporter ships: CSV for the email attachment, optionally gzipped,
// and parquet for archived copies.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/finchloft/sales-exporter/internal/source"
)

// ErrSerialize is returned when a payload cannot be produced.
var ErrSerialize = errors.New("serialization failed")

// CSV produces the CSV payload: a header row naming every column and
// one line per row, quoted per RFC 4180. Byte-for-byte deterministic
// given identical input ordering. Empty input yields a header-only
// payload.
func CSV(rows []source.SaleRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(source.Columns()); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrSerialize, err)
	}
	for _, r := range rows {
		if err := w.Write(r.Fields()); err != nil {
			return nil, fmt.Errorf("%w: row %s: %v", ErrSerialize, r.SaleID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return buf.Bytes(), nil
}

// Filename names the attachment for a run generated at t.
func Filename(t time.Time, compressed bool) string {
	name := fmt.Sprintf("sales-export-%s.csv", t.Format("20060102"))
	if compressed {
		name += ".gz"
	}
	return name
}
