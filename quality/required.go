package quality

import (
	"fmt"

	"github.com/coverlight/intake/record"
)

// RequiredField is one field a filing must carry before it can go out.
type RequiredField struct {
	// Path is the canonical field path.
	Path string

	// Populated reports whether the result carries a value for it.
	Populated bool

	// Categories lists the evidence categories that could support the
	// field. The correction loop uses them to decide whether a missing
	// field is recoverable from gathered evidence.
	Categories []record.FieldCategory
}

// RequiredFields enumerates what this filing must have: a title, at
// least one named inventor with a residence, and a reachable
// correspondence target. The list grows with the inventor count, so
// completeness is relative to the filing's own shape.
func RequiredFields(res *record.ExtractionResult) []RequiredField {
	out := []RequiredField{{
		Path:       "application_info.title",
		Populated:  record.Known(res.ApplicationInfo.Title),
		Categories: []record.FieldCategory{record.CategoryApplicationInfo},
	}}

	inventors := 0
	for i, p := range res.Persons {
		if p.Role != record.RoleInventor {
			continue
		}
		inventors++
		prefix := fmt.Sprintf("persons[%d]", i)
		out = append(out,
			RequiredField{
				Path:       prefix + ".family_name",
				Populated:  record.Known(p.FamilyName),
				Categories: []record.FieldCategory{record.CategoryInventor},
			},
			RequiredField{
				Path:       prefix + ".residence",
				Populated:  record.Known(p.Residence) || !p.Address.Empty(),
				Categories: []record.FieldCategory{record.CategoryInventor},
			})
	}
	out = append(out, RequiredField{
		Path:       "persons.inventor",
		Populated:  inventors > 0,
		Categories: []record.FieldCategory{record.CategoryInventor},
	})

	corr := res.Correspondence
	out = append(out, RequiredField{
		Path: "correspondence",
		Populated: record.Known(corr.CustomerNumber) || record.Known(corr.Email) ||
			!corr.Address.Empty(),
		Categories: []record.FieldCategory{record.CategoryCorrespondence},
	})
	return out
}

// MissingRequired filters to the unpopulated required fields.
func MissingRequired(res *record.ExtractionResult) []RequiredField {
	var out []RequiredField
	for _, f := range RequiredFields(res) {
		if !f.Populated {
			out = append(out, f)
		}
	}
	return out
}
