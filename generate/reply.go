package generate

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/coverlight/intake/llm"
)

// draftSchema is deliberately loose about value formats. The schema's job
// is shape: records are objects, lists are lists, and every record names
// its evidence. Value checking is the enforcement pass's job, where a bad
// field costs that field instead of the whole reply.
const draftSchema = `{
	"type": "object",
	"properties": {
		"persons": {"type": "array", "items": {"$ref": "#/$defs/person"}},
		"organizations": {"type": "array", "items": {"$ref": "#/$defs/organization"}},
		"priority_claims": {"type": "array", "items": {"$ref": "#/$defs/claim"}},
		"correspondence": {"anyOf": [{"$ref": "#/$defs/correspondence"}, {"type": "null"}]},
		"application": {"anyOf": [{"$ref": "#/$defs/application"}, {"type": "null"}]},
		"classification": {"anyOf": [{"$ref": "#/$defs/classification"}, {"type": "null"}]}
	},
	"$defs": {
		"str": {"anyOf": [{"type": "string"}, {"type": "null"}]},
		"evidence": {"type": "array", "items": {"type": "string"}},
		"address": {
			"anyOf": [
				{
					"type": "object",
					"properties": {
						"street1": {"$ref": "#/$defs/str"},
						"street2": {"$ref": "#/$defs/str"},
						"city": {"$ref": "#/$defs/str"},
						"region": {"$ref": "#/$defs/str"},
						"postal_code": {"$ref": "#/$defs/str"},
						"country": {"$ref": "#/$defs/str"}
					}
				},
				{"type": "null"}
			]
		},
		"person": {
			"type": "object",
			"properties": {
				"given_name": {"$ref": "#/$defs/str"},
				"middle_name": {"$ref": "#/$defs/str"},
				"family_name": {"$ref": "#/$defs/str"},
				"suffix": {"$ref": "#/$defs/str"},
				"residence": {"$ref": "#/$defs/str"},
				"address": {"$ref": "#/$defs/address"},
				"email": {"$ref": "#/$defs/str"},
				"phone": {"$ref": "#/$defs/str"},
				"role": {"$ref": "#/$defs/str"},
				"evidence": {"$ref": "#/$defs/evidence"}
			},
			"required": ["evidence"]
		},
		"organization": {
			"type": "object",
			"properties": {
				"name": {"$ref": "#/$defs/str"},
				"representative": {"$ref": "#/$defs/str"},
				"address": {"$ref": "#/$defs/address"},
				"email": {"$ref": "#/$defs/str"},
				"phone": {"$ref": "#/$defs/str"},
				"role": {"$ref": "#/$defs/str"},
				"evidence": {"$ref": "#/$defs/evidence"}
			},
			"required": ["evidence"]
		},
		"claim": {
			"type": "object",
			"properties": {
				"kind": {"$ref": "#/$defs/str"},
				"prior_application_number": {"$ref": "#/$defs/str"},
				"filing_date": {"$ref": "#/$defs/str"},
				"relation": {"$ref": "#/$defs/str"},
				"country": {"$ref": "#/$defs/str"},
				"evidence": {"$ref": "#/$defs/evidence"}
			},
			"required": ["evidence"]
		},
		"correspondence": {
			"type": "object",
			"properties": {
				"name": {"$ref": "#/$defs/str"},
				"address": {"$ref": "#/$defs/address"},
				"email": {"$ref": "#/$defs/str"},
				"phone": {"$ref": "#/$defs/str"},
				"customer_number": {"$ref": "#/$defs/str"},
				"evidence": {"$ref": "#/$defs/evidence"}
			},
			"required": ["evidence"]
		},
		"application": {
			"type": "object",
			"properties": {
				"title": {"$ref": "#/$defs/str"},
				"docket_number": {"$ref": "#/$defs/str"},
				"application_number": {"$ref": "#/$defs/str"},
				"filing_date": {"$ref": "#/$defs/str"},
				"entity_status": {"$ref": "#/$defs/str"},
				"evidence": {"$ref": "#/$defs/evidence"}
			},
			"required": ["evidence"]
		},
		"classification": {
			"type": "object",
			"properties": {
				"subject": {"$ref": "#/$defs/str"},
				"suggested_class": {"$ref": "#/$defs/str"},
				"evidence": {"$ref": "#/$defs/evidence"}
			},
			"required": ["evidence"]
		}
	}
}`

var compiledDraftSchema = jsonschema.MustCompileString("draft_reply.json", draftSchema)

// Reply decode types. Pointers distinguish null from empty; both end up
// as the unknown marker after conversion.
type replyAddress struct {
	Street1    *string `json:"street1"`
	Street2    *string `json:"street2"`
	City       *string `json:"city"`
	Region     *string `json:"region"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

type replyPerson struct {
	GivenName  *string       `json:"given_name"`
	MiddleName *string       `json:"middle_name"`
	FamilyName *string       `json:"family_name"`
	Suffix     *string       `json:"suffix"`
	Residence  *string       `json:"residence"`
	Address    *replyAddress `json:"address"`
	Email      *string       `json:"email"`
	Phone      *string       `json:"phone"`
	Role       *string       `json:"role"`
	Evidence   []string      `json:"evidence"`
}

type replyOrg struct {
	Name           *string       `json:"name"`
	Representative *string       `json:"representative"`
	Address        *replyAddress `json:"address"`
	Email          *string       `json:"email"`
	Phone          *string       `json:"phone"`
	Role           *string       `json:"role"`
	Evidence       []string      `json:"evidence"`
}

type replyClaim struct {
	Kind       *string  `json:"kind"`
	PriorAppID *string  `json:"prior_application_number"`
	FilingDate *string  `json:"filing_date"`
	Relation   *string  `json:"relation"`
	Country    *string  `json:"country"`
	Evidence   []string `json:"evidence"`
}

type replyCorrespondence struct {
	Name           *string       `json:"name"`
	Address        *replyAddress `json:"address"`
	Email          *string       `json:"email"`
	Phone          *string       `json:"phone"`
	CustomerNumber *string       `json:"customer_number"`
	Evidence       []string      `json:"evidence"`
}

type replyApplication struct {
	Title             *string  `json:"title"`
	DocketNumber      *string  `json:"docket_number"`
	ApplicationNumber *string  `json:"application_number"`
	FilingDate        *string  `json:"filing_date"`
	EntityStatus      *string  `json:"entity_status"`
	Evidence          []string `json:"evidence"`
}

type replyClassification struct {
	Subject        *string  `json:"subject"`
	SuggestedClass *string  `json:"suggested_class"`
	Evidence       []string `json:"evidence"`
}

type draftReply struct {
	Persons        []replyPerson        `json:"persons"`
	Organizations  []replyOrg           `json:"organizations"`
	PriorityClaims []replyClaim         `json:"priority_claims"`
	Correspondence *replyCorrespondence `json:"correspondence"`
	Application    *replyApplication    `json:"application"`
	Classification *replyClassification `json:"classification"`
}

// parseReply extracts and validates the JSON object from the model's
// reply content.
func parseReply(content string) (*draftReply, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("parsing reply: %w", err)
	}
	if err := compiledDraftSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("reply failed schema validation: %w", err)
	}

	var reply draftReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("decoding reply: %w", err)
	}
	return &reply, nil
}

// str unwraps an optional reply string.
func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
