package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, handler *HealthHandler, method string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	handler.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, "/health", nil))

	var response HealthResponse
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	}
	return rr, response
}

func TestHealthCheck(t *testing.T) {
	rr, response := serveHealth(t, NewHealthHandler("test-service", "1.0.0", nil, nil), http.MethodGet)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "test-service", response.Service)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Equal(t, "disabled", response.Redis)
	assert.Equal(t, "disabled", response.DB)
}

func TestHealthCheck_RedisUpAndDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	handler := NewHealthHandler("test-service", "1.0.0", client, nil)

	_, response := serveHealth(t, handler, http.MethodGet)
	assert.Equal(t, "up", response.Redis)
	assert.Equal(t, "healthy", response.Status)

	mr.Close()
	_, response = serveHealth(t, handler, http.MethodGet)
	assert.Equal(t, "down", response.Redis)
	assert.Equal(t, "degraded", response.Status)
}

func TestHealthCheckMethodNotAllowed(t *testing.T) {
	rr, _ := serveHealth(t, NewHealthHandler("test-service", "1.0.0", nil, nil), http.MethodPost)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
