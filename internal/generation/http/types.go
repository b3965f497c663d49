package http

import (
	"context"

	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
	"github.com/mediguru/mediguru-gateway/internal/generation/service"
)

// GenerationService is the gateway behaviour the handler depends on.
type GenerationService interface {
	Generate(ctx context.Context, req domain.InferenceRequest) (*domain.InferenceResult, error)
	Metrics() *service.Metrics
}

// HistoryReader serves stored generation records. A nil reader disables the
// history routes.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*domain.GenerationRecord, error)
	Recent(ctx context.Context, limit int64) ([]*domain.GenerationRecord, error)
}

// AuditReader lists the push attempts recorded for a generation. A nil
// reader disables the pushes route.
type AuditReader interface {
	ListByGeneration(ctx context.Context, generationID string) ([]*domain.PushAudit, error)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
