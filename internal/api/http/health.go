package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Redis     string    `json:"redis"`
	DB        string    `json:"db"`
}

type HealthHandler struct {
	serviceName string
	version     string
	redis       *redis.Client
	db          *sql.DB
}

// NewHealthHandler builds the handler. redis and db may be nil when the
// backing store is not configured.
func NewHealthHandler(serviceName, version string, rdb *redis.Client, db *sql.DB) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		redis:       rdb,
		db:          db,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = upOrDown(h.redis.Ping(pingCtx).Err())
	}

	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = upOrDown(h.db.PingContext(pingCtx))
	}

	status := "healthy"
	if redisStatus == "down" || dbStatus == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Redis:     redisStatus,
		DB:        dbStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

func upOrDown(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
