package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlight/intake/llm"
	_ "github.com/coverlight/intake/llm/providers"
	"github.com/coverlight/intake/model"
	"github.com/coverlight/intake/record"
)

// TestExtractOverHTTP runs the pipeline against the real model client
// and a live HTTP endpoint, so registry resolution, provider request
// building, and response parsing are all on the path.
func TestExtractOverHTTP(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "default", req.Model)
		require.NotEmpty(t, req.Messages)

		// The clean sheet produces one gathering call, then one
		// generation call.
		content := cleanGatherReply
		if calls.Add(1) > 1 {
			content = cleanGenerateReply
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 400, "completion_tokens": 200, "total_tokens": 600},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	registry := model.NewRegistry(nil, map[string]*model.EndpointConfig{
		"default": {Provider: "ollama", URL: srv.URL + "/v1", Model: "default"},
	})
	client := llm.NewClient(registry)

	p, err := New(DefaultConfig(), Deps{
		Client:  client,
		Metrics: NewMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	res, err := p.Extract(context.Background(), singleDocSet(cleanCoverSheet))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.EqualValues(t, 2, calls.Load())
	require.Len(t, res.Persons, 1)
	assert.Equal(t, "Smith", res.Persons[0].FamilyName)
	require.Len(t, res.Organizations, 1)
	assert.Equal(t, "Adaptive Beam Router", res.ApplicationInfo.Title)
	assert.False(t, res.ManualReviewRequired)
	assert.InDelta(t, 1.0, res.Metrics.Overall, 1e-9)

	// Evidence parsed off the wire keeps its stated confidence.
	require.Len(t, res.Evidence, 7)
	for _, ev := range res.Evidence {
		assert.Equal(t, record.LevelHigh, ev.Confidence)
	}
}
