// Package main implements a mock model server for offline pipeline
// runs. It serves OpenAI-compatible /v1/chat/completions responses
// from JSON reply files, routing by the "model" field in the request.
// With it the whole extraction pipeline runs deterministically with no
// model endpoint, which is what demos and end-to-end tests need.
//
// Usage:
//
//	mock-model -replies /path/to/replies -port 11434
//
// Reply files are JSON named by model: "default.json" answers every
// call for model "default". Numbered files ("default.1.json",
// "default.2.json") are served in order, one per call, which lines up
// with the pipeline's deterministic call sequence for a submission:
// one gathering call per segment, one generation call, then any
// correction calls. After the numbered replies run out the base file
// repeats as the fallback.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// capturedRequest records an incoming request so tests can verify the
// prompts the pipeline actually sent.
type capturedRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"` // 1-indexed per-model call number
	Timestamp int64         `json:"timestamp"`
}

type server struct {
	replies map[string][]string // model name -> ordered reply contents
	logger  *slog.Logger

	calls atomic.Int64

	mu           sync.Mutex
	modelCalls   map[string]int
	modelHistory map[string][]capturedRequest
}

func newServer(replies map[string][]string, logger *slog.Logger) *server {
	return &server{
		replies:      replies,
		logger:       logger,
		modelCalls:   make(map[string]int),
		modelHistory: make(map[string][]capturedRequest),
	}
}

func main() {
	replyDir := flag.String("replies", "", "directory containing reply files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *replyDir == "" {
		*replyDir = os.Getenv("MOCK_MODEL_REPLIES")
	}
	if *replyDir == "" {
		*replyDir = "replies"
	}

	replies, err := loadReplies(*replyDir)
	if err != nil {
		logger.Error("Failed to load replies", "dir", *replyDir, "error", err)
		os.Exit(1)
	}
	for model, seq := range replies {
		logger.Info("Loaded model replies", "model", model, "replies", len(seq))
	}

	s := newServer(replies, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Mock model server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	seq, ok := s.replies[req.Model]
	if !ok {
		s.logger.Warn("No reply for model", "model", req.Model)
		http.Error(w, fmt.Sprintf("no reply for model %q", req.Model), http.StatusNotFound)
		return
	}

	callNum := s.calls.Add(1)

	s.mu.Lock()
	index := s.modelCalls[req.Model]
	s.modelCalls[req.Model] = index + 1
	s.modelHistory[req.Model] = append(s.modelHistory[req.Model], capturedRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		CallIndex: index + 1,
		Timestamp: time.Now().UnixMilli(),
	})
	s.mu.Unlock()

	content := seq[len(seq)-1]
	if index < len(seq) {
		content = seq[index]
	}

	s.logger.Info("Serving reply",
		"call", callNum,
		"model", req.Model,
		"reply", index+1,
		"messages", len(req.Messages))

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleModels lists the available mock models.
func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	var models []modelEntry
	for name := range s.replies {
		models = append(models, modelEntry{ID: name, Object: "model", OwnedBy: "mock-model"})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": models})
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	callsByModel := make(map[string]int, len(s.modelCalls))
	for model, n := range s.modelCalls {
		callsByModel[model] = n
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_model": callsByModel,
	})
}

// handleRequests returns captured requests. The optional "model" and
// "call" query parameters narrow the result to one model or one call
// (1-indexed).
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	modelFilter := r.URL.Query().Get("model")
	callFilter, _ := strconv.Atoi(r.URL.Query().Get("call"))

	s.mu.Lock()
	result := make(map[string][]capturedRequest)
	for model, reqs := range s.modelHistory {
		if modelFilter != "" && model != modelFilter {
			continue
		}
		if callFilter > 0 {
			for _, req := range reqs {
				if req.CallIndex == callFilter {
					result[model] = append(result[model], req)
				}
			}
			continue
		}
		result[model] = reqs
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"requests_by_model": result})
}

// numberedFileRe matches sequenced reply files like "default.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadReplies reads the reply directory into per-model sequences.
// Numbered files come first in numeric order; the base "<model>.json"
// file is appended last and repeats once the sequence runs out.
func loadReplies(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reply directory: %w", err)
	}

	base := make(map[string]string)
	numbered := make(map[string]map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", name)
		}

		if m := numberedFileRe.FindStringSubmatch(name); m != nil {
			index, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][index] = string(data)
			continue
		}
		base[strings.TrimSuffix(name, ".json")] = string(data)
	}

	models := make(map[string]bool)
	for m := range base {
		models[m] = true
	}
	for m := range numbered {
		models[m] = true
	}

	replies := make(map[string][]string)
	for model := range models {
		var seq []string
		if files, ok := numbered[model]; ok {
			indices := make([]int, 0, len(files))
			for idx := range files {
				indices = append(indices, idx)
			}
			sort.Ints(indices)
			for _, idx := range indices {
				seq = append(seq, files[idx])
			}
		}
		if content, ok := base[model]; ok {
			seq = append(seq, content)
		}
		replies[model] = seq
	}

	if len(replies) == 0 {
		return nil, fmt.Errorf("no reply files found in %s", dir)
	}
	return replies, nil
}
