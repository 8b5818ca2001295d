package model

import "testing"

func TestCapabilityIsValid(t *testing.T) {
	tests := []struct {
		cap      Capability
		expected bool
	}{
		{CapabilityExtraction, true},
		{CapabilityVision, true},
		{CapabilityCorrection, true},
		{CapabilityFast, true},
		{Capability("invalid"), false},
		{Capability(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.cap), func(t *testing.T) {
			got := tt.cap.IsValid()
			if got != tt.expected {
				t.Errorf("Capability(%q).IsValid() = %v, want %v", tt.cap, got, tt.expected)
			}
		})
	}
}

func TestParseCapability(t *testing.T) {
	tests := []struct {
		input    string
		expected Capability
	}{
		{"extraction", CapabilityExtraction},
		{"vision", CapabilityVision},
		{"correction", CapabilityCorrection},
		{"fast", CapabilityFast},
		{"invalid", ""},
		{"", ""},
		{"EXTRACTION", ""}, // case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseCapability(tt.input)
			if got != tt.expected {
				t.Errorf("ParseCapability(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		cap      Capability
		expected string
	}{
		{CapabilityExtraction, "extraction"},
		{CapabilityVision, "vision"},
		{CapabilityCorrection, "correction"},
		{CapabilityFast, "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.cap.String()
			if got != tt.expected {
				t.Errorf("Capability.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
