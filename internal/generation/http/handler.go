package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

type Handler struct {
	gateway GenerationService
	history HistoryReader
	audits  AuditReader
}

// New builds the handler. history and audits may be nil.
func New(gateway GenerationService, history HistoryReader, audits AuditReader) *Handler {
	return &Handler{gateway: gateway, history: history, audits: audits}
}

// Register mounts the gateway routes on rg (normally /api/fastapi).
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/generate", h.Generate)
	rg.GET("/generations", h.ListGenerations)
	rg.GET("/generations/:id", h.GetGeneration)
	rg.GET("/generations/:id/pushes", h.ListPushes)
	rg.GET("/metrics", h.Metrics)
}

// Generate handles POST /generate.
func (h *Handler) Generate(c *gin.Context) {
	var req domain.InferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.gateway.Generate(c.Request.Context(), req)
	if err != nil {
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) {
			abortWithDetail(c, errorStatus(genErr.StatusCode), genErr.Message)
			return
		}
		// *domain.PersistenceError and anything unexpected
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListGenerations handles GET /generations?limit=n.
func (h *Handler) ListGenerations(c *gin.Context) {
	if h.history == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, domain.ErrStoreDisabled.Error())
		return
	}

	limit := int64(defaultRecentLimit)
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			abortWithDetail(c, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*domain.GenerationRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"generations": records})
}

// GetGeneration handles GET /generations/:id.
func (h *Handler) GetGeneration(c *gin.Context) {
	if h.history == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, domain.ErrStoreDisabled.Error())
		return
	}

	record, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrRecordNotFound) {
		abortWithDetail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListPushes handles GET /generations/:id/pushes.
func (h *Handler) ListPushes(c *gin.Context) {
	if h.audits == nil {
		abortWithDetail(c, http.StatusServiceUnavailable, domain.ErrAuditDisabled.Error())
		return
	}

	audits, err := h.audits.ListByGeneration(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if audits == nil {
		audits = []*domain.PushAudit{}
	}

	c.JSON(http.StatusOK, gin.H{"pushes": audits})
}

// Metrics handles GET /metrics.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.gateway.Metrics().Snapshot())
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// errorStatus keeps the generator's code when it is a valid HTTP error status.
func errorStatus(code int) int {
	if code < 400 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}
