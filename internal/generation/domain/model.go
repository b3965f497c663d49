package domain

import (
	"encoding/json"
	"path/filepath"
	"time"
)

// Result status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// InferenceRequest is the client payload forwarded to the generator.
// Only its shape is checked here.
type InferenceRequest struct {
	Prompt   string                 `json:"prompt" binding:"required"`
	Provider string                 `json:"provider,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// InferenceResult is the generator's tagged outcome. StatusCode is only
// meaningful when Status is StatusError. Build it with Succeeded or Failed.
type InferenceResult struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Data       string `json:"data"`

	// raw is data as the generator sent it, set only when that was a JSON
	// document rather than a string.
	raw json.RawMessage
}

// Succeeded returns an ok result carrying the generated artifact.
func Succeeded(data string) InferenceResult {
	return InferenceResult{Status: StatusOK, Data: data}
}

// Failed returns an error result with the code and message to report.
func Failed(statusCode int, message string) InferenceResult {
	return InferenceResult{Status: StatusError, StatusCode: statusCode, Data: message}
}

// WithRawData keeps a structured generator payload so it is returned to the
// client unchanged. JSON strings and invalid JSON are ignored.
func (r InferenceResult) WithRawData(raw json.RawMessage) InferenceResult {
	if len(raw) == 0 || !json.Valid(raw) || raw[0] == '"' {
		return r
	}
	r.raw = append(json.RawMessage(nil), raw...)
	return r
}

// MarshalJSON writes data as the structured payload when one was kept.
func (r InferenceResult) MarshalJSON() ([]byte, error) {
	data := r.raw
	if len(data) == 0 {
		b, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(struct {
		Status     string          `json:"status"`
		StatusCode int             `json:"status_code,omitempty"`
		Data       json.RawMessage `json:"data"`
	}{r.Status, r.StatusCode, data})
}

func (r InferenceResult) IsOK() bool {
	return r.Status == StatusOK
}

// Err returns the result as a GenerationError, or nil when the result is ok.
func (r InferenceResult) Err() *GenerationError {
	if r.IsOK() {
		return nil
	}
	return &GenerationError{StatusCode: r.StatusCode, Message: r.Data}
}

// Valid reports whether Status is one of the two known tags.
func (r InferenceResult) Valid() bool {
	return r.Status == StatusOK || r.Status == StatusError
}

// Artifact is the file a generation produced and a push publishes.
type Artifact struct {
	ID       string `json:"id"`
	RepoPath string `json:"-"`
	RelPath  string `json:"path"`
}

// Path is the absolute location of the artifact inside the local clone.
func (a Artifact) Path() string {
	return filepath.Join(a.RepoPath, a.RelPath)
}

// Generation pairs a generator result with the artifact it wrote.
// Artifact is zero when the result is an error.
type Generation struct {
	Result   InferenceResult
	Artifact Artifact
}

// PushReceipt describes a successful push.
type PushReceipt struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
	Remote string `json:"remote"`
}

// GenerationRecord is the history entry kept for each handled request.
type GenerationRecord struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Status       string    `json:"status"`
	StatusCode   int       `json:"status_code,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Pushed       bool      `json:"pushed"`
	Commit       string    `json:"commit,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PushAudit is one push attempt as stored in postgres.
type PushAudit struct {
	ID           string    `json:"id"`
	GenerationID string    `json:"generation_id"`
	ArtifactPath string    `json:"artifact_path"`
	Commit       string    `json:"commit,omitempty"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
