package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"transaction-reconciliation-backend/internal/audit"
	"transaction-reconciliation-backend/internal/models"
	"transaction-reconciliation-backend/internal/repository"
	"transaction-reconciliation-backend/internal/services/ledger"
	"transaction-reconciliation-backend/internal/services/matching"
)

// ErrInvalidStatus is returned by Resolve for a status outside the four
// result statuses.
var ErrInvalidStatus = errors.New("invalid result status")

// Service owns the upload-job lifecycle: Processing is entered at Submit time
// and a bounded worker pool drives each job to Completed or Failed. Job rows
// are only advanced here; results are only mutated afterwards by Resolve.
type Service struct {
	db      *gorm.DB
	jobs    *repository.UploadJobRepository
	results *repository.ResultRepository
	ledger  *ledger.Store
	sink    audit.Sink

	tasks  chan task
	done   chan struct{}
	cancel context.CancelFunc
	runCtx context.Context

	mu        sync.Mutex
	cancels   map[uuid.UUID]context.CancelFunc
	closeOnce sync.Once
}

type task struct {
	jobID uuid.UUID
	rows  []matching.Row
	ctx   context.Context
}

// NewService starts workers goroutines that consume submitted jobs. Call
// Close on shutdown to cancel in-flight runs and drain the pool.
func NewService(
	jobs *repository.UploadJobRepository,
	results *repository.ResultRepository,
	ledgerStore *ledger.Store,
	sink audit.Sink,
	workers int,
) *Service {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		db:      jobs.DB(),
		jobs:    jobs,
		results: results,
		ledger:  ledgerStore,
		sink:    sink,
		tasks:   make(chan task, workers*4),
		done:    make(chan struct{}),
		cancel:  cancel,
		runCtx:  ctx,
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}

	go func() {
		defer close(s.done)
		sem := make(chan struct{}, workers)
		for t := range s.tasks {
			sem <- struct{}{}
			go func(t task) {
				defer func() { <-sem }()
				s.process(t)
			}(t)
		}
		for i := 0; i < workers; i++ {
			sem <- struct{}{}
		}
	}()

	return s
}

// Close cancels running jobs (they finalize as Failed) and waits for the pool
// to drain. Safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.tasks)
		<-s.done
	})
}

// CancelJob aborts a queued or in-flight run; the job surfaces as Failed once
// the worker observes the cancellation. Returns false when no active run
// exists for the id.
func (s *Service) CancelJob(jobID uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Submit registers an upload. If a Completed job already exists for the exact
// file name, that job is returned with cached=true and no new work is
// created: the cache key is filename equality, not file content. Otherwise a
// Processing job is created, the run is queued, and the caller returns
// without waiting for completion.
func (s *Service) Submit(ctx context.Context, fileName, submitter string, mapping matching.ColumnMapping, rows []matching.Row) (*models.UploadJob, bool, error) {
	if err := mapping.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.jobs.LatestCompletedByFileName(fileName)
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"fileName": fileName,
			"jobId":    existing.ID,
		}).Info("file previously processed, returning cached job")
		return existing, true, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	job := &models.UploadJob{
		ID:         uuid.New(),
		UploadedBy: submitter,
		FileName:   fileName,
		Status:     models.JobStatusProcessing,
		CreatedAt:  time.Now(),
	}
	if err := s.jobs.Create(job); err != nil {
		return nil, false, err
	}

	ev := audit.Event{
		Entity:    "UploadJob",
		EntityID:  job.ID.String(),
		Actor:     submitter,
		Action:    "File Upload",
		Details:   fmt.Sprintf("Uploaded file: %s", fileName),
		Timestamp: time.Now(),
	}
	if err := s.sink.Record(ctx, ev); err != nil {
		logrus.WithError(err).Warn("failed to record upload audit event")
	}

	taskCtx, cancelTask := context.WithCancel(s.runCtx)
	s.mu.Lock()
	s.cancels[job.ID] = cancelTask
	s.mu.Unlock()

	s.tasks <- task{jobID: job.ID, rows: rows, ctx: taskCtx}
	return job, false, nil
}

// process runs one job to a terminal state. Failures never propagate to the
// submitter; they only surface through job status.
func (s *Service) process(t task) {
	log := logrus.WithField("jobId", t.jobID)

	idx := matching.NewIndex(s.ledger.Snapshot())
	results, err := matching.Run(t.ctx, t.jobID, t.rows, idx)
	if err == nil {
		// A cancellation that lands after the last row still aborts the job.
		err = t.ctx.Err()
	}
	s.release(t.jobID)
	if err != nil {
		log.WithError(err).Error("matching run aborted")
		s.fail(t.jobID)
		return
	}

	if err := s.finalize(t.jobID, results); err != nil {
		log.WithError(err).Error("failed to finalize job")
		s.fail(t.jobID)
		return
	}
	log.WithField("results", len(results)).Info("job completed")
}

// finalize persists the results and flips the job to Completed in a single
// transaction: readers see the full result set and the terminal status
// together, never a partial final state.
func (s *Service) finalize(jobID uuid.UUID, results []models.ReconciliationResult) error {
	matched := 0
	for i := range results {
		if results[i].Status == models.ResultStatusMatched {
			matched++
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(results) > 0 {
			if err := tx.CreateInBatches(results, 500).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&models.UploadJob{}).
			Where("id = ? AND status = ?", jobID, models.JobStatusProcessing).
			Updates(map[string]interface{}{
				"status":        models.JobStatusCompleted,
				"total_records": len(results),
				"matched_count": matched,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Errorf("job %s is not in %s state", jobID, models.JobStatusProcessing)
		}
		return nil
	})
}

// release drops the job's cancel handle once the run reaches its terminal
// transition, so CancelJob stops reporting the run as active.
func (s *Service) release(jobID uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	delete(s.cancels, jobID)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *Service) fail(jobID uuid.UUID) {
	if err := s.jobs.MarkFailed(jobID); err != nil {
		logrus.WithError(err).WithField("jobId", jobID).Error("failed to mark job failed")
	}
}

// Resolve applies a manual override to one result: the status is replaced
// unconditionally, the resolved flag set, and the variance reset to zero. No
// recomputation against the ledger happens.
func (s *Service) Resolve(ctx context.Context, resultID uuid.UUID, newStatus, actor string) (*models.ReconciliationResult, error) {
	if !models.ValidResultStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	res, err := s.results.GetByID(resultID)
	if err != nil {
		return nil, err
	}

	oldStatus := res.Status
	res.Status = newStatus
	res.IsResolved = true
	res.Variance = 0
	if err := s.results.Update(res); err != nil {
		return nil, err
	}

	ev := audit.Event{
		Entity:    "ReconciliationResult",
		EntityID:  resultID.String(),
		Actor:     actor,
		Action:    "Manual Resolution",
		OldValue:  oldStatus,
		NewValue:  newStatus,
		Timestamp: time.Now(),
	}
	if err := s.sink.Record(ctx, ev); err != nil {
		logrus.WithError(err).Warn("failed to record resolution audit event")
	}

	return res, nil
}

func (s *Service) GetJob(id uuid.UUID) (*models.UploadJob, error) {
	return s.jobs.GetByID(id)
}

func (s *Service) GetResults(jobID uuid.UUID) ([]models.ReconciliationResult, error) {
	return s.results.ListByJob(jobID)
}

func (s *Service) LatestCompletedJob() (*models.UploadJob, error) {
	return s.jobs.LatestCompleted()
}

func (s *Service) ListJobs() ([]models.UploadJob, error) {
	return s.jobs.ListAll()
}
