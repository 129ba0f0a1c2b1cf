package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/stocktake/internal/application/service"
	"github.com/garyjia/stocktake/internal/domain/counting"
	"github.com/garyjia/stocktake/internal/metrics"
	"github.com/garyjia/stocktake/internal/sheet"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handlers contains all HTTP request handlers
type Handlers struct {
	stocktake      service.StocktakeService
	health         HealthChecker
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	stocktake service.StocktakeService,
	health HealthChecker,
	maxUploadBytes int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		stocktake:      stocktake,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// EmailRequest is the body of POST /api/runs/:id/email
type EmailRequest struct {
	To string `json:"to"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
	}
	status := http.StatusOK

	if h.health != nil {
		healthy, details := h.health()
		resp.Components = details
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}

// CreateRun handles POST /api/runs with a multipart "file" field
func (h *Handlers) CreateRun(c *gin.Context) {
	if c.Request.ContentLength > h.maxUploadBytes {
		h.uploadTooLarge(c)
		return
	}
	// chunked uploads carry no length up front
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "multipart field \"file\" is required",
		})
		return
	}

	if !sheet.Supported(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("unsupported file type %q: upload a .csv or .xlsx list", fileHeader.Filename),
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", "file", fileHeader.Filename, "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unreadable upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("Failed to read upload", "file", fileHeader.Filename, "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unreadable upload"})
		return
	}

	run, err := h.stocktake.CreateRun(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: run})
}

func (h *Handlers) uploadTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, Response{
		Success: false,
		Error:   fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes),
	})
}

// ListRuns handles GET /api/runs
func (h *Handlers) ListRuns(c *gin.Context) {
	runs, err := h.stocktake.ListRuns(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: runs})
}

// GetRun handles GET /api/runs/:id
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.stocktake.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: run})
}

// DeleteRun handles DELETE /api/runs/:id
func (h *Handlers) DeleteRun(c *gin.Context) {
	if err := h.stocktake.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetArea handles GET /api/runs/:id/areas/:area
func (h *Handlers) GetArea(c *gin.Context) {
	view, err := h.stocktake.OpenArea(c.Request.Context(), c.Param("id"), c.Param("area"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// ApplyCommand handles POST /api/runs/:id/areas/:area/commands
func (h *Handlers) ApplyCommand(c *gin.Context) {
	var cmd counting.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		metrics.RecordCommand("malformed", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid command body: " + err.Error(),
		})
		return
	}

	view, err := h.stocktake.ApplyCommand(c.Request.Context(), c.Param("id"), c.Param("area"), cmd)
	metrics.RecordCommand(string(cmd.Type), err)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// Summary handles GET /api/runs/:id/summary
func (h *Handlers) Summary(c *gin.Context) {
	summary, err := h.stocktake.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// ExportAll handles GET /api/runs/:id/export
func (h *Handlers) ExportAll(c *gin.Context) {
	file, err := h.stocktake.ExportAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	sendFile(c, file)
}

// ExportArea handles GET /api/runs/:id/areas/:area/export
func (h *Handlers) ExportArea(c *gin.Context) {
	file, err := h.stocktake.ExportArea(c.Request.Context(), c.Param("id"), c.Param("area"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	sendFile(c, file)
}

// EmailResults handles POST /api/runs/:id/email. A delivery failure is still
// a 200 with sent=false and the warning text.
func (h *Handlers) EmailResults(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.stocktake.EmailResults(c.Request.Context(), c.Param("id"), req.To)
	if err != nil && result == nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// writeError maps service and domain errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, counting.ErrUnknownArea):
		status = http.StatusNotFound
	case errors.Is(err, sheet.ErrInputValidation),
		errors.Is(err, counting.ErrInvalidCommand),
		errors.Is(err, service.ErrInvalidRecipient):
		status = http.StatusBadRequest
	case errors.Is(err, counting.ErrMergeConsistency):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"path", c.FullPath(),
			"request_id", GetRequestID(c),
			"error", err,
		)
		c.JSON(status, Response{Success: false, Error: "internal server error"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
