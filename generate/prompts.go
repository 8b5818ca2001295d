package generate

import (
	"fmt"
	"strings"

	"github.com/coverlight/intake/record"
)

// systemPrompt instructs the model to assemble filing records from the
// numbered evidence listing. The contract is strict: every value copied
// from a quote, every entity citing its evidence numbers, null for
// anything the evidence does not state.
const systemPrompt = `You assemble structured patent filing records from gathered evidence.

You receive a numbered list of evidence records, each a verbatim quote
from a patent cover sheet with its category, page, section, and
confidence. Build the filing records the evidence supports and reply
with a single JSON object, no prose before or after it.

Rules:
- Every value must come from the evidence. Copy values exactly as
  quoted; do not reformat dates, expand abbreviations, or tidy spelling.
- A field the evidence does not state is null. Never guess and never
  fill in typical or default values.
- Every record carries an "evidence" array listing the numbers (like
  "E3") of the evidence it was built from. Do not emit a record with an
  empty evidence array.
- Emit one record per distinct mention. If a name appears in two places,
  emit two persons; merging duplicates happens downstream.
- People belong in "persons" and companies, universities, and firms in
  "organizations". Never split an organization name across a person's
  name fields.

Reply shape:
{
  "persons": [{"given_name", "middle_name", "family_name", "suffix",
               "residence", "address", "email", "phone",
               "role": "inventor" | "applicant" | "attorney",
               "evidence": ["E1"]}],
  "organizations": [{"name", "representative", "address", "email", "phone",
                     "role": "applicant" | "attorney",
                     "evidence": ["E2"]}],
  "priority_claims": [{"kind": "domestic" | "foreign",
                       "prior_application_number", "filing_date",
                       "relation": "continuation" | "divisional" |
                                   "continuation_in_part" | "provisional",
                       "country", "evidence": ["E3"]}],
  "correspondence": {"name", "address", "email", "phone",
                     "customer_number", "evidence": ["E4"]} or null,
  "application": {"title", "docket_number", "application_number",
                  "filing_date", "entity_status", "evidence": ["E5"]} or null,
  "classification": {"subject", "suggested_class", "evidence": ["E6"]} or null
}

Addresses are objects {"street1", "street2", "city", "region",
"postal_code", "country"} with null for unstated components. "relation"
and "country" apply to domestic and foreign claims respectively; leave
the other null.`

// buildEvidenceListing renders the evidence set as a numbered listing for
// the prompt and returns the number-to-record index used to resolve the
// model's citations.
func buildEvidenceListing(set *record.EvidenceSet) (string, map[string]record.EvidenceRecord) {
	var b strings.Builder
	refs := make(map[string]record.EvidenceRecord, set.Len())
	for i, rec := range set.All() {
		ref := fmt.Sprintf("E%d", i+1)
		refs[ref] = rec
		section := rec.SourceSection
		if section == "" {
			section = "-"
		}
		fmt.Fprintf(&b, "%s [%s | page %d | %s | %s]: %q\n",
			ref, rec.Category, rec.SourcePage, section, rec.Confidence, rec.RawText)
	}
	return b.String(), refs
}

// buildUserPrompt wraps the listing in the user turn.
func buildUserPrompt(listing string) string {
	var b strings.Builder
	b.WriteString("Evidence gathered from the submission:\n\n")
	b.WriteString(listing)
	b.WriteString("\nBuild the filing records this evidence supports.")
	return b.String()
}
