package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mediguru/mediguru-gateway/internal/api/http/middleware"
	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
)

// Generator produces an artifact from a request.
type Generator interface {
	Generate(ctx context.Context, req domain.InferenceRequest) (*domain.Generation, error)
}

// Persister publishes a generated artifact to the remote repository.
type Persister interface {
	Push(ctx context.Context, artifact domain.Artifact) (*domain.PushReceipt, error)
}

// HistoryStore keeps one record per handled request.
type HistoryStore interface {
	Save(ctx context.Context, record *domain.GenerationRecord) error
}

// PushAuditor stores one row per push attempt.
type PushAuditor interface {
	Record(ctx context.Context, audit *domain.PushAudit) error
}

// GatewayDeps wires a Gateway. History and Audit may be nil.
type GatewayDeps struct {
	Generator Generator
	Persister Persister
	History   HistoryStore
	Audit     PushAuditor
	Metrics   *Metrics
}

// Gateway runs generate, check, push for one request at a time. It holds no
// per-request state, so one instance serves concurrent requests.
type Gateway struct {
	generator Generator
	persister Persister
	history   HistoryStore
	audit     PushAuditor
	metrics   *Metrics
}

func NewGateway(dep GatewayDeps) *Gateway {
	m := dep.Metrics
	if m == nil {
		m = &Metrics{}
	}
	return &Gateway{
		generator: dep.Generator,
		persister: dep.Persister,
		history:   dep.History,
		audit:     dep.Audit,
		metrics:   m,
	}
}

// Metrics returns the counters updated by Generate.
func (g *Gateway) Metrics() *Metrics {
	return g.metrics
}

// Generate calls the generator and, when it succeeds, pushes the artifact.
// It returns *domain.GenerationError when generation fails and
// *domain.PersistenceError when the push fails.
//
// Both calls run to completion even if the caller goes away: a client
// disconnect must not kill git halfway through a commit.
func (g *Gateway) Generate(ctx context.Context, req domain.InferenceRequest) (*domain.InferenceResult, error) {
	ctx = context.WithoutCancel(ctx)
	logger := NewLogger(ctx)
	record := &domain.GenerationRecord{
		RequestID: middleware.GetRequestID(ctx),
		CreatedAt: time.Now().UTC(),
	}
	defer g.saveRecord(ctx, logger, record)

	start := time.Now()
	gen, err := g.generate(ctx, req)
	if err != nil {
		g.metrics.recordGeneration(time.Since(start), true)
		logger.LogError("generate", err)
		genErr := &domain.GenerationError{StatusCode: http.StatusBadGateway, Message: err.Error()}
		record.ID = uuid.NewString()
		record.Status = domain.StatusError
		record.StatusCode = genErr.StatusCode
		record.Error = genErr.Message
		return nil, genErr
	}

	result := gen.Result
	record.ID = gen.Artifact.ID
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.Status = result.Status

	if genErr := result.Err(); genErr != nil {
		g.metrics.recordGeneration(time.Since(start), true)
		logger.LogWarnf("generate", "generator returned status %d: %s", genErr.StatusCode, genErr.Message)
		record.StatusCode = genErr.StatusCode
		record.Error = genErr.Message
		return nil, genErr
	}
	g.metrics.recordGeneration(time.Since(start), false)
	record.ArtifactPath = gen.Artifact.RelPath
	logger.LogInfof("generate", "artifact written id=%s path=%s", gen.Artifact.ID, gen.Artifact.RelPath)

	receipt, err := g.persister.Push(ctx, gen.Artifact)
	g.metrics.recordPush(err)
	g.recordPush(ctx, logger, gen.Artifact, receipt, err)
	if err != nil {
		logger.LogError("push", err)
		record.Error = err.Error()
		return nil, &domain.PersistenceError{Err: err}
	}

	record.Pushed = true
	if receipt != nil {
		record.Commit = receipt.Commit
		logger.LogInfof("push", "pushed commit=%s branch=%s remote=%s", receipt.Commit, receipt.Branch, receipt.Remote)
	}

	return &result, nil
}

func (g *Gateway) generate(ctx context.Context, req domain.InferenceRequest) (*domain.Generation, error) {
	gen, err := g.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, errors.New("generator returned no result")
	}
	if !gen.Result.Valid() {
		return nil, fmt.Errorf("generator returned unknown status %q", gen.Result.Status)
	}
	return gen, nil
}

func (g *Gateway) recordPush(ctx context.Context, logger *Logger, artifact domain.Artifact, receipt *domain.PushReceipt, pushErr error) {
	if g.audit == nil {
		return
	}
	audit := &domain.PushAudit{
		ID:           uuid.NewString(),
		GenerationID: artifact.ID,
		ArtifactPath: artifact.RelPath,
		Success:      pushErr == nil,
		CreatedAt:    time.Now().UTC(),
	}
	if receipt != nil {
		audit.Commit = receipt.Commit
	}
	if pushErr != nil {
		audit.Error = pushErr.Error()
	}
	if err := g.audit.Record(ctx, audit); err != nil {
		logger.LogError("push_audit", err)
	}
}

func (g *Gateway) saveRecord(ctx context.Context, logger *Logger, record *domain.GenerationRecord) {
	if g.history == nil {
		return
	}
	if err := g.history.Save(ctx, record); err != nil {
		logger.LogError("save_history", err)
	}
}
