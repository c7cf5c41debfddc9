package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/finchloft/sales-exporter/internal/source"
)

// parquetRow mirrors SaleRow with a flat schema for the archive copy.
// SoldAt is stored as Unix milliseconds.
type parquetRow struct {
	SaleID         string `parquet:"sale_id"`
	SoldAt         int64  `parquet:"sold_at"`
	Gross          string `parquet:"gross"`
	PaymentType    string `parquet:"payment_type"`
	ClientRef      string `parquet:"client_ref"`
	LotNumber      string `parquet:"lot_number"`
	LotDescription string `parquet:"lot_description"`
	HammerPrice    string `parquet:"hammer_price"`
}

// Parquet produces a parquet rendition of the result set for archived
// copies. The mailed attachment is always CSV.
func Parquet(rows []source.SaleRow) ([]byte, error) {
	records := make([]parquetRow, 0, len(rows))
	for _, r := range rows {
		records = append(records, parquetRow{
			SaleID:         r.SaleID,
			SoldAt:         r.SoldAt.UnixMilli(),
			Gross:          r.Gross,
			PaymentType:    r.PaymentType,
			ClientRef:      r.ClientRef,
			LotNumber:      r.LotNumber,
			LotDescription: r.LotDescription,
			HammerPrice:    r.HammerPrice,
		})
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[parquetRow](&buf)
	if _, err := w.Write(records); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: parquet: %v", ErrSerialize, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: parquet close: %v", ErrSerialize, err)
	}
	return buf.Bytes(), nil
}
