package evidence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/coverlight/intake/llm"
)

// replySchema is the wire contract for gathering replies. Category and
// confidence stay loose strings here: out-of-set values are degraded or
// dropped per record later, which keeps one bad element from sinking a
// whole segment.
const replySchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["category", "quote"],
    "properties": {
      "category": {"type": "string", "minLength": 1},
      "quote": {"type": "string", "minLength": 1},
      "page": {"type": "integer", "minimum": 0},
      "section": {"type": "string"},
      "confidence": {"type": "string"}
    }
  }
}`

var compiledReplySchema = jsonschema.MustCompileString("segment_reply.json", replySchema)

// replyItem is one element of a gathering reply.
type replyItem struct {
	Category   string `json:"category"`
	Quote      string `json:"quote"`
	Page       int    `json:"page"`
	Section    string `json:"section"`
	Confidence string `json:"confidence"`
}

// parseReply extracts and validates the JSON array from a model reply.
func parseReply(content string) ([]replyItem, error) {
	raw := llm.ExtractJSONArray(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := compiledReplySchema.Validate(v); err != nil {
		return nil, fmt.Errorf("reply does not match contract: %w", err)
	}

	var items []replyItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode reply items: %w", err)
	}
	return items, nil
}

// normalizeForMatch collapses whitespace and case so a quote can be
// located in segment text regardless of line wrapping.
func normalizeForMatch(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// quoteInSegment reports whether quote occurs verbatim in the segment
// content, modulo whitespace and case.
func quoteInSegment(quote, segment string) bool {
	q := normalizeForMatch(quote)
	if q == "" {
		return false
	}
	return strings.Contains(normalizeForMatch(segment), q)
}
