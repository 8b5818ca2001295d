package correction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coverlight/intake/llm"
	"github.com/coverlight/intake/record"
)

const systemPrompt = `You correct one field of a structured patent filing record.

You will be given the field, its current value, why it failed validation, and verbatim evidence quotes gathered from the source documents.

Rules:
- Reply with ONLY a JSON object of the form {"value": "..."}.
- The corrected value must be supported by the evidence quotes. Do not invent a value.
- If the evidence does not state a usable value, reply {"value": null}.
- No commentary, no markdown.`

// buildUserPrompt renders one correction request.
func buildUserPrompt(t task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Field: %s\n", t.path)
	if t.missing {
		b.WriteString("Current value: (missing)\n")
	} else {
		fmt.Fprintf(&b, "Current value: %s\n", t.invalid)
	}
	fmt.Fprintf(&b, "Problem: %s\n", t.reason)
	b.WriteString("\nEvidence:\n")
	if len(t.quotes) == 0 {
		b.WriteString("(none gathered)\n")
	}
	for _, q := range t.quotes {
		section := q.SourceSection
		if section == "" {
			section = "-"
		}
		fmt.Fprintf(&b, "- [page %d | %s] %q\n", q.SourcePage, section, q.RawText)
	}
	b.WriteString("\nReply with the corrected value for this field only.")
	return b.String()
}

// parseReply extracts the corrected value from a model reply. ok is
// false when the model declined (null, empty, or the unknown marker).
func parseReply(content string) (string, bool, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return "", false, fmt.Errorf("no JSON object in reply")
	}
	var reply struct {
		Value *string `json:"value"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", false, fmt.Errorf("parse correction reply: %w", err)
	}
	if reply.Value == nil {
		return "", false, nil
	}
	value := strings.TrimSpace(*reply.Value)
	if record.IsUnknown(value) {
		return "", false, nil
	}
	return value, true, nil
}
