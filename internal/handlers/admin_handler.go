package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transaction-reconciliation-backend/internal/middleware"
	"transaction-reconciliation-backend/internal/repository"
	"transaction-reconciliation-backend/internal/services/ledger"
	service "transaction-reconciliation-backend/internal/services/reconciliation"
)

type AdminHandler struct {
	service *service.Service
	ledger  *ledger.Store
	audits  *repository.AuditLogRepository
}

func NewAdminHandler(s *service.Service, store *ledger.Store, audits *repository.AuditLogRepository) *AdminHandler {
	return &AdminHandler{service: s, ledger: store, audits: audits}
}

// UploadSystemRecords replaces the entire system-of-record with the uploaded
// CSV. In-flight matching runs keep their captured snapshot.
func (h *AdminHandler) UploadSystemRecords(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	records, err := ledger.ParseCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.ledger.ReplaceAll(c.Request.Context(), records, middleware.Actor(c))
	if err != nil {
		logrus.WithError(err).Error("system record replace failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg": fmt.Sprintf("Successfully imported %d system records.", count),
	})
}

// ListJobs returns all upload jobs, newest first.
func (h *AdminHandler) ListJobs(c *gin.Context) {
	jobs, err := h.service.ListJobs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// ListAuditLogs returns the audit trail, newest first.
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	logs, err := h.audits.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
