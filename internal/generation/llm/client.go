package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mediguru/mediguru-gateway/internal/generation/domain"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 90 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimit    float64 // requests per second, 0 disables limiting
	Burst        int
	RepoPath     string // local clone the artifact is written into
	ArtifactDir  string // directory inside the clone, one subdirectory per generation
	ArtifactName string
}

// Client calls the external generation service and writes the artifact it
// returns into the local clone.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	repoPath     string
	artifactDir  string
	artifactName string
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ArtifactName == "" {
		opts.ArtifactName = "main.tf"
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: opts.Timeout},
		limiter:      limiter,
		repoPath:     opts.RepoPath,
		artifactDir:  opts.ArtifactDir,
		artifactName: opts.ArtifactName,
	}
}

// upstreamResult mirrors the generation service reply. Data is kept raw since
// the service may answer with a string or a JSON document.
type upstreamResult struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

// Generate forwards req to the generation service. A returned error means
// the service could not be reached or answered with something unreadable;
// failures the service reports itself come back as an error result.
func (c *Client) Generate(ctx context.Context, req domain.InferenceRequest) (*domain.Generation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generator rate limit: %w", err)
	}

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generator response: %w", err)
	}

	var out upstreamResult
	if err := json.Unmarshal(body, &out); err != nil || out.Status == "" {
		return nil, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data := dataText(out.Data)

	if out.Status != domain.StatusOK {
		code := out.StatusCode
		if code == 0 && resp.StatusCode >= 400 {
			code = resp.StatusCode
		}
		return &domain.Generation{Result: domain.InferenceResult{Status: out.Status, StatusCode: code, Data: data}}, nil
	}

	artifact, err := c.writeArtifact(data)
	if err != nil {
		return nil, err
	}

	result := domain.Succeeded(data).WithRawData(out.Data)
	return &domain.Generation{Result: result, Artifact: artifact}, nil
}

func (c *Client) writeArtifact(content string) (domain.Artifact, error) {
	id := uuid.NewString()
	a := domain.Artifact{
		ID:       id,
		RepoPath: c.repoPath,
		RelPath:  filepath.Join(c.artifactDir, id, c.artifactName),
	}

	if err := os.MkdirAll(filepath.Dir(a.Path()), 0o755); err != nil {
		return domain.Artifact{}, fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(a.Path(), []byte(content), 0o644); err != nil {
		return domain.Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	return a, nil
}

func dataText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
