package matching

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"transaction-reconciliation-backend/internal/models"
)

// Run classifies every uploaded row against the ledger index and returns the
// results in input order.
//
// Per row: an empty transaction id (after trimming) produces no result; an
// unparsable amount is stored as zero but the row is still classified; an id
// already seen within this run classifies Duplicate without any match
// attempt; otherwise the id index is consulted first and the reference index
// only on a miss. Cancellation is checked between rows.
func Run(ctx context.Context, jobID uuid.UUID, rows []Row, idx *Index) ([]models.ReconciliationResult, error) {
	results := make([]models.ReconciliationResult, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// ReadRows trims, but rows may come from any caller.
		id := strings.TrimSpace(row.TransactionID)
		if id == "" {
			continue
		}

		amount, ok := ParseAmount(row.RawAmount)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"jobId":      jobID,
				"uploadedId": id,
			}).Debug("unparsable amount, keeping row with zero value")
		}

		res := models.ReconciliationResult{
			ID:             uuid.New(),
			JobID:          jobID,
			Seq:            len(results),
			UploadedID:     id,
			UploadedAmount: amount.InexactFloat64(),
		}

		if _, dup := seen[id]; dup {
			res.Status = models.ResultStatusDuplicate
		} else {
			seen[id] = struct{}{}

			rec := idx.Lookup(id, strings.TrimSpace(row.ReferenceNumber))
			status, variance := Classify(amount, rec)
			res.Status = status
			res.Variance = variance.InexactFloat64()
			if rec != nil {
				sysID := rec.TransactionID
				sysAmt := rec.Amount
				res.SystemID = &sysID
				res.SystemAmount = &sysAmt
			}
		}

		results = append(results, res)
	}

	return results, nil
}
