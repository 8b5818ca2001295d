package evidence

import (
	"fmt"

	"github.com/coverlight/intake/document"
	"github.com/coverlight/intake/llm"
)

// systemPrompt sets the gathering contract: verbatim quotes only, closed
// category set, nothing inferred. The reply shape matches replySchema.
const systemPrompt = `You are an evidence gatherer for patent filing documents. You read one segment of a submission and report every piece of filing-relevant information the segment explicitly states.

Rules:
- Quote the document verbatim. Never paraphrase, abbreviate, or complete partial text.
- Capture only what the segment explicitly states. If a detail is not written in the segment, it does not exist.
- One record per distinct fact. A name and its address are separate records unless printed as one block.
- Do not guess at categories. Use exactly one of the listed values.

Categories:
- "inventor": inventor names, residences, citizenships
- "applicant": applicant or assignee names and addresses (person or company)
- "correspondence": correspondence address, attorney or agent contact, customer number
- "priority_claim": prior application numbers, their filing dates, continuation/divisional/provisional relations, foreign priority countries
- "application_info": title of invention, docket number, application number, filing date, entity status
- "classification": technical subject matter, suggested class

Respond with a JSON array, no surrounding prose. Each element:
{
  "category": "<one of the categories above>",
  "quote": "<verbatim text copied from the segment>",
  "page": <page number the quote appears on>,
  "section": "<heading or field label the quote sits under, or \"\">",
  "confidence": "high" | "medium" | "low"
}

Confidence: "high" for explicitly labeled fields ("Inventor: Jane Smith"), "medium" for clear context without a label (a name under an Inventors heading), "low" for ambiguous placement.

Return [] when the segment contains nothing filing-relevant.`

// Per-format framing. Cover sheets arrive three ways and each misleads
// differently: digital text is trustworthy, form dumps bury values in
// field names, scans carry recognition noise.
const (
	textPreamble = `The segment below comes from a digitally produced document. Text and layout are reliable.`

	formPreamble = `The segment below is a structured form export: field names paired with values. Treat field names as section labels and quote the values verbatim. An empty or unchecked field states nothing.`

	imagePreamble = `The segment below was recovered from a scanned page by OCR. Expect recognition noise: broken words, stray characters, merged columns. Quote exactly as written, artifacts included, and lower your confidence where the text looks damaged.`
)

// buildMessages assembles the chat messages for one segment.
func buildMessages(format document.Format, seg document.Segment) []llm.Message {
	preamble := textPreamble
	switch format {
	case document.FormatForm:
		preamble = formPreamble
	case document.FormatImage:
		preamble = imagePreamble
	}

	var pages string
	if seg.PageStart == seg.PageEnd {
		pages = fmt.Sprintf("Page %d", seg.PageStart)
	} else {
		pages = fmt.Sprintf("Pages %d-%d", seg.PageStart, seg.PageEnd)
	}

	user := preamble + "\n\n" + pages
	if seg.Section != "" {
		user += "\nSection: " + seg.Section
	}
	user += "\n\n---\n" + seg.Content + "\n---"

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}
