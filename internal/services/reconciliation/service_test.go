package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"transaction-reconciliation-backend/internal/models"
	"transaction-reconciliation-backend/internal/repository"
	"transaction-reconciliation-backend/internal/services/ledger"
	"transaction-reconciliation-backend/internal/services/matching"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.SystemRecord{},
		&models.UploadJob{},
		&models.ReconciliationResult{},
		&models.AuditLog{},
	))
	return db
}

func newTestService(t *testing.T, records []models.SystemRecord) (*Service, *gorm.DB) {
	return newTestServiceWorkers(t, records, 2)
}

func newTestServiceWorkers(t *testing.T, records []models.SystemRecord, workers int) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)

	jobs := repository.NewUploadJobRepository(db)
	results := repository.NewResultRepository(db)
	sysRepo := repository.NewSystemRecordRepository(db)
	sink := repository.NewAuditLogRepository(db)

	store := ledger.NewStore(sysRepo, sink)
	if len(records) > 0 {
		require.NoError(t, sysRepo.ReplaceAll(records))
		require.NoError(t, store.Load())
	}

	svc := NewService(jobs, results, store, sink, workers)
	t.Cleanup(svc.Close)
	return svc, db
}

func sysRec(id string, amount float64, ref string) models.SystemRecord {
	return models.SystemRecord{
		ID:              uuid.New(),
		TransactionID:   id,
		Amount:          amount,
		ReferenceNumber: ref,
		Status:          models.SystemRecordStatusSettled,
	}
}

func waitTerminal(t *testing.T, svc *Service, id uuid.UUID) *models.UploadJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.GetJob(id)
		require.NoError(t, err)
		if job.Status != models.JobStatusProcessing {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

var testMapping = matching.ColumnMapping{TransactionID: "Txn", Amount: "Amt", ReferenceNumber: "Ref"}

func TestSubmitRunsToCompletion(t *testing.T) {
	svc, _ := newTestService(t, []models.SystemRecord{
		sysRec("T1", 100.00, "REF-1"),
		sysRec("T2", 250.00, "REF-2"),
	})

	rows := []matching.Row{
		{TransactionID: "T1", RawAmount: "100.00"},
		{TransactionID: "UP-9", RawAmount: "250.00", ReferenceNumber: "REF-2"},
		{TransactionID: "X5", RawAmount: "50"},
		{TransactionID: "X5", RawAmount: "50"},
	}

	job, cached, err := svc.Submit(context.Background(), "batch.csv", "analyst", testMapping, rows)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, models.JobStatusProcessing, job.Status)

	done := waitTerminal(t, svc, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Equal(t, 4, done.TotalRecords)
	// Only exact matches count; the reference-fallback row matched exactly
	// too, duplicates and unmatched do not.
	assert.Equal(t, 2, done.MatchedCount)

	results, err := svc.GetResults(job.ID)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, models.ResultStatusMatched, results[0].Status)
	assert.Equal(t, models.ResultStatusMatched, results[1].Status)
	require.NotNil(t, results[1].SystemID)
	assert.Equal(t, "T2", *results[1].SystemID)
	assert.Equal(t, models.ResultStatusUnmatched, results[2].Status)
	assert.Equal(t, models.ResultStatusDuplicate, results[3].Status)

	// Results come back in uploaded file order.
	for i, res := range results {
		assert.Equal(t, i, res.Seq)
	}
}

func TestSubmitFileNameCache(t *testing.T) {
	svc, db := newTestService(t, []models.SystemRecord{sysRec("T1", 100.00, "")})

	rows := []matching.Row{{TransactionID: "T1", RawAmount: "100.00"}}
	first, cached, err := svc.Submit(context.Background(), "same.csv", "analyst", testMapping, rows)
	require.NoError(t, err)
	require.False(t, cached)
	waitTerminal(t, svc, first.ID)

	// Same file name, even with different content, returns the prior job
	// and creates no new results.
	again, cached, err := svc.Submit(context.Background(), "same.csv", "analyst", testMapping, []matching.Row{
		{TransactionID: "OTHER", RawAmount: "7.00"},
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.ReconciliationResult{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitDistinctFileNames(t *testing.T) {
	svc, _ := newTestService(t, nil)

	a, cached, err := svc.Submit(context.Background(), "a.csv", "analyst", testMapping, nil)
	require.NoError(t, err)
	require.False(t, cached)
	waitTerminal(t, svc, a.ID)

	b, cached, err := svc.Submit(context.Background(), "b.csv", "analyst", testMapping, nil)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSubmitEmptyFileCompletesWithZeroRecords(t *testing.T) {
	svc, _ := newTestService(t, nil)

	job, _, err := svc.Submit(context.Background(), "empty.csv", "analyst", testMapping, nil)
	require.NoError(t, err)

	done := waitTerminal(t, svc, job.ID)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Zero(t, done.TotalRecords)
	assert.Zero(t, done.MatchedCount)
}

func TestSubmitInvalidMapping(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, _, err := svc.Submit(context.Background(), "x.csv", "analyst", matching.ColumnMapping{}, nil)
	assert.Error(t, err)
}

func TestSubmitRecordsUploadAuditEvent(t *testing.T) {
	svc, db := newTestService(t, nil)

	job, _, err := svc.Submit(context.Background(), "audited.csv", "analyst", testMapping, nil)
	require.NoError(t, err)
	waitTerminal(t, svc, job.ID)

	var logs []models.AuditLog
	require.NoError(t, db.Where("entity = ?", "UploadJob").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, job.ID.String(), logs[0].EntityID)
	assert.Equal(t, "File Upload", logs[0].Action)
	assert.Equal(t, "analyst", logs[0].Actor)
}

func TestResolveOverridesResult(t *testing.T) {
	svc, db := newTestService(t, nil)

	job, _, err := svc.Submit(context.Background(), "resolve.csv", "analyst", testMapping, []matching.Row{
		{TransactionID: "R1", RawAmount: "33.00"},
	})
	require.NoError(t, err)
	waitTerminal(t, svc, job.ID)

	results, err := svc.GetResults(job.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, models.ResultStatusUnmatched, results[0].Status)

	resolved, err := svc.Resolve(context.Background(), results[0].ID, models.ResultStatusMatched, "supervisor")
	require.NoError(t, err)

	assert.Equal(t, models.ResultStatusMatched, resolved.Status)
	assert.True(t, resolved.IsResolved)
	assert.Zero(t, resolved.Variance)

	var logs []models.AuditLog
	require.NoError(t, db.Where("entity = ?", "ReconciliationResult").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "Manual Resolution", logs[0].Action)
	assert.Equal(t, "supervisor", logs[0].Actor)

	var oldVal, newVal string
	require.NoError(t, json.Unmarshal(logs[0].OldValue, &oldVal))
	require.NoError(t, json.Unmarshal(logs[0].NewValue, &newVal))
	assert.Equal(t, models.ResultStatusUnmatched, oldVal)
	assert.Equal(t, models.ResultStatusMatched, newVal)
}

func TestResolveNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Resolve(context.Background(), uuid.New(), models.ResultStatusMatched, "supervisor")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResolveInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Resolve(context.Background(), uuid.New(), "Bogus", "supervisor")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTerminalJobNeverTransitions(t *testing.T) {
	svc, db := newTestService(t, nil)

	job, _, err := svc.Submit(context.Background(), "final.csv", "analyst", testMapping, nil)
	require.NoError(t, err)
	done := waitTerminal(t, svc, job.ID)
	require.Equal(t, models.JobStatusCompleted, done.Status)

	// A Completed job stays Completed even if a failure path fires late.
	jobs := repository.NewUploadJobRepository(db)
	require.NoError(t, jobs.MarkFailed(job.ID))

	current, err := svc.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, current.Status)
}

func TestCanceledRunFailsJob(t *testing.T) {
	// A canceled run must land on Failed through the worker's failure path,
	// with no results visible.
	svc, _ := newTestService(t, nil)

	job := &models.UploadJob{
		ID:         uuid.New(),
		UploadedBy: "analyst",
		FileName:   "abort.csv",
		Status:     models.JobStatusProcessing,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, svc.jobs.Create(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.process(task{
		jobID: job.ID,
		rows:  []matching.Row{{TransactionID: "T1", RawAmount: "1.00"}},
		ctx:   ctx,
	})

	current, err := svc.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, current.Status)

	results, err := svc.GetResults(job.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCancelQueuedJob(t *testing.T) {
	// With a single worker, the second submission waits behind the first;
	// canceling it while queued must fail it instead of running it.
	svc, _ := newTestServiceWorkers(t, nil, 1)

	blockerRows := make([]matching.Row, 0, 10000)
	for i := 0; i < 10000; i++ {
		blockerRows = append(blockerRows, matching.Row{
			TransactionID: fmt.Sprintf("B%d", i),
			RawAmount:     "1.00",
		})
	}
	blocker, _, err := svc.Submit(context.Background(), "blocker.csv", "analyst", testMapping, blockerRows)
	require.NoError(t, err)

	victim, _, err := svc.Submit(context.Background(), "victim.csv", "analyst", testMapping, []matching.Row{
		{TransactionID: "V1", RawAmount: "1.00"},
	})
	require.NoError(t, err)

	require.True(t, svc.CancelJob(victim.ID))

	assert.Equal(t, models.JobStatusFailed, waitTerminal(t, svc, victim.ID).Status)
	assert.Equal(t, models.JobStatusCompleted, waitTerminal(t, svc, blocker.ID).Status)

	results, err := svc.GetResults(victim.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCancelUnknownJob(t *testing.T) {
	svc, _ := newTestService(t, nil)
	assert.False(t, svc.CancelJob(uuid.New()))
}

func TestCancelAfterCompletionKeepsStatus(t *testing.T) {
	svc, _ := newTestService(t, nil)

	job, _, err := svc.Submit(context.Background(), "done.csv", "analyst", testMapping, []matching.Row{
		{TransactionID: "T1", RawAmount: "1.00"},
	})
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, waitTerminal(t, svc, job.ID).Status)

	// Completed is terminal; a late cancellation request must not move it.
	svc.CancelJob(job.ID)
	time.Sleep(50 * time.Millisecond)

	current, err := svc.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, current.Status)
}

func TestCloseIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil)

	svc.Close()
	svc.Close()
}

func TestLatestCompletedJob(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.LatestCompletedJob()
	assert.ErrorIs(t, err, repository.ErrNotFound)

	job, _, err := svc.Submit(context.Background(), "latest.csv", "analyst", testMapping, nil)
	require.NoError(t, err)
	waitTerminal(t, svc, job.ID)

	latest, err := svc.LatestCompletedJob()
	require.NoError(t, err)
	assert.Equal(t, job.ID, latest.ID)
}
