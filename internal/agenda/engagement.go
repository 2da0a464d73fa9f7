package agenda

import "strings"

// EngagementType classifies an Innovation Hub customer engagement. The set
// is fixed; anything else degrades to DefaultEngagementType.
type EngagementType string

const (
	BusinessEnvisioning EngagementType = "BUSINESS_ENVISIONING"
	SolutionEnvisioning EngagementType = "SOLUTION_ENVISIONING"
	ADS                 EngagementType = "ADS"
	RapidPrototype      EngagementType = "RAPID_PROTOTYPE"
	Hackathon           EngagementType = "HACKATHON"
	Consult             EngagementType = "CONSULT"
)

// DefaultEngagementType is used whenever classification fails or yields an
// unrecognized value. Conversation continuity wins over strict validation.
const DefaultEngagementType = SolutionEnvisioning

// engagementLabel is the marker the extraction stage emits ahead of its
// inferred classification, e.g. "Type of Engagement: ADS (inferred from ...)".
const engagementLabel = "Type of Engagement:"

var validTypes = []EngagementType{
	BusinessEnvisioning,
	SolutionEnvisioning,
	ADS,
	RapidPrototype,
	Hackathon,
	Consult,
}

// ParseEngagementType validates a raw classification value against the fixed
// enumeration. Matching is by containment so inferred values like
// "likely RAPID_PROTOTYPE" still resolve. Reapplying to the same input
// always yields the same value.
func ParseEngagementType(raw string) EngagementType {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for _, t := range validTypes {
		if strings.Contains(raw, string(t)) {
			return t
		}
	}
	return DefaultEngagementType
}

// ExtractEngagementType parses the labeled classification line out of
// generated text. It returns the validated type and whether the label was
// present at all; absent labels yield the default type.
func ExtractEngagementType(content string) (EngagementType, bool) {
	idx := strings.Index(content, engagementLabel)
	if idx < 0 {
		return DefaultEngagementType, false
	}
	rest := content[idx+len(engagementLabel):]
	// Drop the trailing "(reasoning ...)" clause and anything past the line.
	if cut := strings.IndexByte(rest, '('); cut >= 0 {
		rest = rest[:cut]
	}
	if cut := strings.IndexByte(rest, '\n'); cut >= 0 {
		rest = rest[:cut]
	}
	return ParseEngagementType(rest), true
}
