package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"transaction-reconciliation-backend/internal/middleware"
	"transaction-reconciliation-backend/internal/repository"
	"transaction-reconciliation-backend/internal/services/matching"
	service "transaction-reconciliation-backend/internal/services/reconciliation"
)

type ReconciliationHandler struct {
	service *service.Service
}

func NewReconciliationHandler(s *service.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// Upload accepts a multipart CSV plus a "mapping" form field holding the
// column mapping JSON. The response is immediate: 202 with the new job id, or
// 200 with isCached=true when a Completed job already exists for the file
// name. Completion must be observed via the job endpoints.
func (h *ReconciliationHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	var mapping matching.ColumnMapping
	if err := json.Unmarshal([]byte(c.PostForm("mapping")), &mapping); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mapping"})
		return
	}
	if err := mapping.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := matching.ReadRows(file, mapping)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, cached, err := h.service.Submit(c.Request.Context(), header.Filename, middleware.Actor(c), mapping, rows)
	if err != nil {
		logrus.WithError(err).Error("submit failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	if cached {
		c.JSON(http.StatusOK, gin.H{
			"msg":      "File previously processed. Returning existing results.",
			"jobId":    job.ID,
			"isCached": true,
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"msg":   "File queued for processing",
		"jobId": job.ID,
	})
}

// GetResults returns a job's results in uploaded file order.
func (h *ReconciliationHandler) GetResults(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	results, err := h.service.GetResults(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetJob reports job progress: status plus the summary counters.
func (h *ReconciliationHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	job, err := h.service.GetJob(jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Resolve applies a manual override to a single result.
func (h *ReconciliationHandler) Resolve(c *gin.Context) {
	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result ID"})
		return
	}

	var payload struct {
		NewStatus string `json:"newStatus"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.service.Resolve(c.Request.Context(), resultID, payload.NewStatus, middleware.Actor(c))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		logrus.WithError(err).Error("resolve failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// CancelJob requests abortion of a queued or in-flight run; the job surfaces
// as Failed once the worker observes the cancellation.
func (h *ReconciliationHandler) CancelJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	if !h.service.CancelJob(jobID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active run for job"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"msg": "cancellation requested"})
}

// GetLatestJob returns the id of the newest Completed job.
func (h *ReconciliationHandler) GetLatestJob(c *gin.Context) {
	job, err := h.service.LatestCompletedJob()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no data found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": job.ID})
}
