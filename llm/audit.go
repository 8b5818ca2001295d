package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CallRecord captures the metadata of a single LLM call for auditing.
// Prompt and response content are deliberately absent: extraction runs
// over documents that carry personal data, and the audit trail must not
// become a second copy of it.
type CallRecord struct {
	// RequestID uniquely identifies this call.
	RequestID string `json:"request_id"`

	// Capability is the semantic capability requested ("extraction", "correction", etc.).
	Capability string `json:"capability"`

	// Model is the registry name of the model that served the call.
	// Empty when every endpoint failed.
	Model string `json:"model,omitempty"`

	// Provider is the provider type ("anthropic", "openai", "ollama").
	Provider string `json:"provider,omitempty"`

	// Token usage as reported by the provider.
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// FinishReason indicates why generation stopped.
	FinishReason string `json:"finish_reason,omitempty"`

	// Timing details.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// Retries counts retry attempts beyond the first try.
	Retries int `json:"retries,omitempty"`

	// FallbacksUsed lists models that failed before this call resolved.
	FallbacksUsed []string `json:"fallbacks_used,omitempty"`

	// ContextBudget is the endpoint's context window size in tokens.
	ContextBudget int `json:"context_budget,omitempty"`

	// Error holds the failure message when the call did not succeed.
	Error string `json:"error,omitempty"`
}

// AuditLog appends call records to a JSONL file, one record per line.
// Safe for concurrent use.
type AuditLog struct {
	mu  sync.Mutex
	w   io.Writer
	c   io.Closer
	enc *json.Encoder
}

// OpenAuditLog opens (or creates) an append-only audit log at path.
// Parent directories are created as needed.
func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	return &AuditLog{w: f, c: f, enc: json.NewEncoder(f)}, nil
}

// NewAuditLog wraps an existing writer. Used in tests.
func NewAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{w: w, enc: json.NewEncoder(w)}
}

// Record appends a single call record.
func (a *AuditLog) Record(rec *CallRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	return nil
}

// Close closes the underlying file if the log owns one.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.c == nil {
		return nil
	}
	err := a.c.Close()
	a.c = nil
	return err
}
