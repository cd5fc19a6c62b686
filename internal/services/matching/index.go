package matching

import "transaction-reconciliation-backend/internal/models"

// Index is a point-in-time view of the system-of-record for one matching run.
// It is built once at run start and never refreshed mid-run, so a concurrent
// ledger replace does not affect rows already being classified.
type Index struct {
	byID  map[string]*models.SystemRecord
	byRef map[string]*models.SystemRecord
}

func NewIndex(records []models.SystemRecord) *Index {
	idx := &Index{
		byID:  make(map[string]*models.SystemRecord, len(records)),
		byRef: make(map[string]*models.SystemRecord),
	}
	for i := range records {
		rec := &records[i]
		idx.byID[rec.TransactionID] = rec
		if rec.ReferenceNumber != "" {
			idx.byRef[rec.ReferenceNumber] = rec
		}
	}
	return idx
}

// Lookup resolves a system record for a row: exact transaction id first, then
// the reference number only when the id misses. Empty references never match.
func (idx *Index) Lookup(id, ref string) *models.SystemRecord {
	if rec, ok := idx.byID[id]; ok {
		return rec
	}
	if ref == "" {
		return nil
	}
	return idx.byRef[ref]
}

func (idx *Index) Size() int {
	return len(idx.byID)
}
