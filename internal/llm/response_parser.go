package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MemoryEntry is a single extracted memory in a completion response.
type MemoryEntry struct {
	Category    string   `json:"category"`
	About       string   `json:"about,omitempty"`
	Content     string   `json:"content"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Contradicts string   `json:"contradicts,omitempty"`
}

// InsightEntry is a single derived insight in a completion response.
type InsightEntry struct {
	Category   string   `json:"category"`
	About      string   `json:"about,omitempty"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// PartnerProfileEntry carries partner observations made before a partnership
// link exists.
type PartnerProfileEntry struct {
	Name         string   `json:"name,omitempty"`
	Observations []string `json:"observations,omitempty"`
}

// PersonalityEntry mirrors types.PersonalityObservation in the wire schema.
type PersonalityEntry struct {
	Traits              []string `json:"traits,omitempty"`
	EmotionalTendencies []string `json:"emotional_tendencies,omitempty"`
	CommunicationPrefs  []string `json:"communication_prefs,omitempty"`
	Values              []string `json:"values,omitempty"`
	StressResponses     []string `json:"stress_responses,omitempty"`
	Boundaries          []string `json:"boundaries,omitempty"`
	HumorStyle          string   `json:"humor_style,omitempty"`
	Notes               string   `json:"notes,omitempty"`
}

// ExtractionResult is the complete parsed extraction response. Every field
// is optional; the zero value means "nothing extracted".
type ExtractionResult struct {
	Personality      *PersonalityEntry    `json:"personality,omitempty"`
	PartnerProfile   *PartnerProfileEntry `json:"partner_profile,omitempty"`
	PersonalMemories []MemoryEntry        `json:"personal_memories,omitempty"`
	SharedMemories   []MemoryEntry        `json:"shared_memories,omitempty"`
	Insights         []InsightEntry       `json:"insights,omitempty"`
}

// Empty reports whether the result carries nothing to write.
func (r *ExtractionResult) Empty() bool {
	return (r.Personality == nil || personalityEmpty(r.Personality)) &&
		(r.PartnerProfile == nil || (r.PartnerProfile.Name == "" && len(r.PartnerProfile.Observations) == 0)) &&
		len(r.PersonalMemories) == 0 &&
		len(r.SharedMemories) == 0 &&
		len(r.Insights) == 0
}

func personalityEmpty(p *PersonalityEntry) bool {
	return len(p.Traits) == 0 && len(p.EmotionalTendencies) == 0 &&
		len(p.CommunicationPrefs) == 0 && len(p.Values) == 0 &&
		len(p.StressResponses) == 0 && len(p.Boundaries) == 0 &&
		p.HumorStyle == "" && p.Notes == ""
}

// RegenerationResult is the complete parsed insight-regeneration response.
type RegenerationResult struct {
	OutdatedTitles []string       `json:"outdated_titles,omitempty"`
	NewInsights    []InsightEntry `json:"new_insights,omitempty"`
}

// ParseExtractionResult parses a raw completion response into an
// ExtractionResult. A response that is not valid JSON returns ErrParse;
// callers treat that as "nothing extracted".
func ParseExtractionResult(raw string) (*ExtractionResult, error) {
	cleaned := extractJSON(raw)
	var result ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &result, nil
}

// ParseRegenerationResult parses a raw completion response into a
// RegenerationResult.
func ParseRegenerationResult(raw string) (*RegenerationResult, error) {
	cleaned := extractJSON(raw)
	var result RegenerationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &result, nil
}

// extractJSON extracts the first valid JSON object from a string that may
// contain extra text. This handles cases where models add explanations or
// markdown fences around the JSON despite instructions.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found, let the parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text[start:]
}
