package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coverlight/intake/record"
)

func personWith(given, middle, family string, addr record.Address, email string) record.PersonCandidate {
	return record.PersonCandidate{
		GivenName:  given,
		MiddleName: middle,
		FamilyName: family,
		Address:    addr,
		Email:      email,
		Role:       record.RoleInventor,
	}
}

func TestPersonSimilarity(t *testing.T) {
	portland := record.Address{Street1: "100 Main St", City: "Portland", Region: "OR", PostalCode: "97201", Country: "US"}
	boston := record.Address{Street1: "7 Beacon St", City: "Boston", Region: "MA", PostalCode: "02108", Country: "US"}
	portlandOak := record.Address{Street1: "200 Oak Ave", City: "Portland", Region: "OR"}

	tests := []struct {
		name string
		a, b record.PersonCandidate
		want float64
	}{
		{
			"exact name and street",
			personWith("John", "", "Smith", portland, ""),
			personWith("John", "", "Smith", portland, ""),
			0.75,
		},
		{
			"shortened name same street",
			personWith("John", "", "Smith", portland, ""),
			personWith("John", "A.", "Smith", portland, ""),
			0.69,
		},
		{
			"initial for given name",
			personWith("J.", "", "Smith", portland, ""),
			personWith("John", "A.", "Smith", portland, ""),
			0.69,
		},
		{
			"abbreviated street suffix still matches",
			personWith("John", "", "Smith", record.Address{Street1: "100 Main Street", City: "Portland"}, ""),
			personWith("John", "", "Smith", portland, ""),
			0.75,
		},
		{
			"name only",
			personWith("John", "", "Smith", record.Address{}, ""),
			personWith("John", "", "Smith", record.Address{}, ""),
			0.40,
		},
		{
			"name and shared email",
			personWith("John", "", "Smith", record.Address{}, "jsmith@example.com"),
			personWith("John", "", "Smith", record.Address{}, "JSmith@example.com"),
			0.65,
		},
		{
			"same street different person",
			personWith("Jane", "", "Doe", portland, ""),
			personWith("John", "", "Smith", portland, ""),
			0.35,
		},
		{
			"same city and region different street",
			personWith("John", "", "Smith", portland, ""),
			personWith("John", "", "Smith", portlandOak, ""),
			0.645,
		},
		{
			"different addresses entirely",
			personWith("John", "", "Smith", portland, ""),
			personWith("John", "", "Smith", boston, ""),
			0.40,
		},
		{
			"no family name no identity",
			personWith("John", "", "", portland, ""),
			personWith("John", "", "Smith", portland, ""),
			0.35,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PersonSimilarity(tt.a, tt.b), 1e-9)
			// Similarity is symmetric.
			assert.InDelta(t, tt.want, PersonSimilarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestOrgSimilarity(t *testing.T) {
	hq := record.Address{Street1: "500 Industrial Way", City: "Portland", Region: "OR"}

	org := func(name string, addr record.Address) record.OrgCandidate {
		return record.OrgCandidate{Name: name, Address: addr, Role: record.RoleApplicant}
	}

	tests := []struct {
		name string
		a, b record.OrgCandidate
		want float64
	}{
		{"exact", org("Acme Robotics, Inc.", hq), org("Acme Robotics, Inc.", hq), 0.75},
		{"punctuation only", org("Acme Robotics, Inc.", hq), org("Acme Robotics Inc", hq), 0.75},
		{"suffix dropped", org("Acme Robotics, Inc.", hq), org("Acme Robotics", hq), 0.69},
		{"unrelated names same street", org("Acme Robotics, Inc.", hq), org("Initech LLC", hq), 0.35},
		{"no names", org("", hq), org("", hq), 0.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OrgSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestStreetKey(t *testing.T) {
	assert.Equal(t, streetKey("100 N Main St"), streetKey("100 North Main Street"))
	assert.NotEqual(t, streetKey("100 Main St"), streetKey("200 Main St"))
	assert.Empty(t, streetKey("unknown"))
}

func TestDigitsOf(t *testing.T) {
	assert.Equal(t, "5035550100", digitsOf("(503) 555-0100"))
	assert.Empty(t, digitsOf("unknown"))
}
