package matching

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ColumnMapping names the source column headers for the logical fields the
// engine consumes. TransactionID and Amount are required.
type ColumnMapping struct {
	TransactionID   string `json:"transactionId"`
	Amount          string `json:"amount"`
	ReferenceNumber string `json:"referenceNumber"`
}

func (m ColumnMapping) Validate() error {
	if strings.TrimSpace(m.TransactionID) == "" {
		return errors.New("mapping: transactionId column is required")
	}
	if strings.TrimSpace(m.Amount) == "" {
		return errors.New("mapping: amount column is required")
	}
	return nil
}

// Row is one uploaded line after the column mapping has been applied. Fields
// are trimmed. Rows exist only for the duration of a single matching run.
type Row struct {
	TransactionID   string
	RawAmount       string
	ReferenceNumber string
}

// ReadRows applies mapping to a CSV stream with a header line and returns the
// rows in file order. Malformed lines are skipped; rows shorter than a mapped
// column yield an empty field for it.
func ReadRows(r io.Reader, mapping ColumnMapping) ([]Row, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	idCol, ok := col[mapping.TransactionID]
	if !ok {
		return nil, errors.Errorf("mapping: column %q not found in header", mapping.TransactionID)
	}
	amtCol, ok := col[mapping.Amount]
	if !ok {
		return nil, errors.Errorf("mapping: column %q not found in header", mapping.Amount)
	}
	refCol := -1
	if mapping.ReferenceNumber != "" {
		if i, ok := col[mapping.ReferenceNumber]; ok {
			refCol = i
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, Row{
			TransactionID:   field(rec, idCol),
			RawAmount:       field(rec, amtCol),
			ReferenceNumber: field(rec, refCol),
		})
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseAmount parses a raw uploaded amount. Unparsable values come back as
// zero with ok=false; the caller keeps the row rather than dropping it.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
