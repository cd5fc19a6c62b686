package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"transaction-reconciliation-backend/internal/models"
)

// ParseCSV reads a system-of-record export. Accepted headers:
// "TransactionID" or "Transaction ID", "Amount", "Date", "ReferenceNo" or
// "Reference Number". Rows missing an id or a parsable amount are skipped;
// a missing date defaults to the import time.
func ParseCSV(r io.Reader) ([]models.SystemRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read system csv header")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	idCol := firstColumn(col, "TransactionID", "Transaction ID")
	amtCol := firstColumn(col, "Amount")
	dateCol := firstColumn(col, "Date")
	refCol := firstColumn(col, "ReferenceNo", "Reference Number")
	if idCol < 0 || amtCol < 0 {
		return nil, errors.New("system csv must have TransactionID and Amount columns")
	}

	var records []models.SystemRecord
	seen := make(map[string]struct{})
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		txnID := cell(rec, idCol)
		amtRaw := cell(rec, amtCol)
		if txnID == "" || amtRaw == "" {
			continue
		}
		amount, err := strconv.ParseFloat(amtRaw, 64)
		if err != nil {
			continue
		}
		// Transaction ids are unique within a snapshot; first occurrence wins.
		if _, dup := seen[txnID]; dup {
			continue
		}
		seen[txnID] = struct{}{}

		date := time.Now()
		if raw := cell(rec, dateCol); raw != "" {
			if parsed, err := parseDate(raw); err == nil {
				date = parsed
			}
		}

		records = append(records, models.SystemRecord{
			ID:              uuid.New(),
			TransactionID:   txnID,
			Amount:          amount,
			Date:            date,
			ReferenceNumber: cell(rec, refCol),
			Status:          models.SystemRecordStatusSettled,
		})
	}
	return records, nil
}

func firstColumn(col map[string]int, names ...string) int {
	for _, name := range names {
		if i, ok := col[name]; ok {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02-01-2006", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date %q", raw)
}
