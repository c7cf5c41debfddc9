package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/finchloft/sales-exporter/internal/source"
)

func sampleRows() []source.SaleRow {
	base := time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)
	return []source.SaleRow{
		{
			SaleID: "S-1001", SoldAt: base, Gross: "1,250.00",
			PaymentType: "credit card", ClientRef: "C-17",
			LotNumber: "42", LotDescription: "Oak dresser, 19th c.", HammerPrice: "1,200.00",
		},
		{
			SaleID: "S-1002", SoldAt: base.Add(time.Hour), Gross: "310.00",
			PaymentType: "cheque", ClientRef: "C-04",
			LotNumber: "43", LotDescription: `Silver teapot "George III"`, HammerPrice: "300.00",
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows := sampleRows()

	payload, err := CSV(rows)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	r := csv.NewReader(bytes.NewReader(payload))
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}

	if len(records) != len(rows)+1 {
		t.Fatalf("record count = %d, want %d", len(records), len(rows)+1)
	}

	header := records[0]
	want := source.Columns()
	if len(header) != len(want) {
		t.Fatalf("header length = %d, want %d", len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want[i])
		}
	}

	for i, row := range rows {
		got := records[i+1]
		fields := row.Fields()
		for j := range fields {
			if got[j] != fields[j] {
				t.Errorf("row %d field %d = %q, want %q", i, j, got[j], fields[j])
			}
		}
	}
}

func TestCSVQuotesEmbeddedSpecials(t *testing.T) {
	rows := []source.SaleRow{{
		SaleID: "S-1", SoldAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Gross: "1,000.00", PaymentType: "cash", ClientRef: "C-1",
		LotNumber: "7", LotDescription: "Clock,\nbrass \"carriage\"", HammerPrice: "950.00",
	}}

	payload, err := CSV(rows)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if got := records[1][6]; got != "Clock,\nbrass \"carriage\"" {
		t.Errorf("description round-trip = %q", got)
	}
}

func TestCSVDeterministic(t *testing.T) {
	rows := sampleRows()

	a, err := CSV(rows)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	b, err := CSV(rows)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("CSV output differs between identical calls")
	}
}

func TestCSVEmptyIsHeaderOnly(t *testing.T) {
	payload, err := CSV(nil)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	if len(lines) != 1 {
		t.Errorf("empty result set produced %d lines, want header only", len(lines))
	}
}

func TestGzipRoundTrip(t *testing.T) {
	payload, err := CSV(sampleRows())
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	compressed, err := Gzip(payload)
	if err != nil {
		t.Fatalf("Gzip failed: %v", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer zr.Close()

	decompressed, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Error("gzip round-trip mismatch")
	}
}

func TestParquetRoundTrip(t *testing.T) {
	rows := sampleRows()

	payload, err := Parquet(rows)
	if err != nil {
		t.Fatalf("Parquet failed: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("Parquet produced empty payload")
	}

	// Parquet payloads start with the PAR1 magic
	if string(payload[:4]) != "PAR1" {
		t.Errorf("payload magic = %q, want PAR1", payload[:4])
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)

	if got := Filename(at, false); got != "sales-export-20240315.csv" {
		t.Errorf("Filename = %q", got)
	}
	if got := Filename(at, true); got != "sales-export-20240315.csv.gz" {
		t.Errorf("Filename compressed = %q", got)
	}
}
