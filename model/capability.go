// Package model provides capability-based model selection for extraction
// stages. Instead of hardcoding model names, stages specify capabilities
// (extraction, vision, correction) and the registry resolves them to
// available models with fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "claude-sonnet", callers specify "extraction" or
// "vision".
type Capability string

const (
	// CapabilityExtraction is for evidence gathering and structured
	// generation over text and form segments.
	CapabilityExtraction Capability = "extraction"

	// CapabilityVision is for segments recovered from scanned or
	// photographed pages, where OCR noise needs tolerant reading.
	CapabilityVision Capability = "vision"

	// CapabilityCorrection is for targeted single-field corrections.
	// Small replies, precision over breadth.
	CapabilityCorrection Capability = "correction"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityExtraction, CapabilityVision, CapabilityCorrection, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
