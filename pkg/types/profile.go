package types

import (
	"strings"
	"time"
)

// PersonalitySummary is the per-user aggregate of personality observations.
// It is merged incrementally by the extraction path and is never decayed or
// deactivated; it is not a confidence-bearing record.
type PersonalitySummary struct {
	UserID string `json:"user_id"`

	Traits              []string `json:"traits,omitempty"`
	EmotionalTendencies []string `json:"emotional_tendencies,omitempty"`
	CommunicationPrefs  []string `json:"communication_prefs,omitempty"`
	Values              []string `json:"values,omitempty"`
	StressResponses     []string `json:"stress_responses,omitempty"`
	Boundaries          []string `json:"boundaries,omitempty"`

	HumorStyle string `json:"humor_style,omitempty"`

	// Notes is free text accumulated across merges.
	Notes string `json:"notes,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PersonalityObservation is one extraction's contribution to a summary.
// Array fields are unioned, scalar fields overwrite when present, and notes
// are appended.
type PersonalityObservation struct {
	Traits              []string `json:"traits,omitempty"`
	EmotionalTendencies []string `json:"emotional_tendencies,omitempty"`
	CommunicationPrefs  []string `json:"communication_prefs,omitempty"`
	Values              []string `json:"values,omitempty"`
	StressResponses     []string `json:"stress_responses,omitempty"`
	Boundaries          []string `json:"boundaries,omitempty"`
	HumorStyle          string   `json:"humor_style,omitempty"`
	Notes               string   `json:"notes,omitempty"`
}

// Empty reports whether the observation carries nothing to merge.
func (o PersonalityObservation) Empty() bool {
	return len(o.Traits) == 0 &&
		len(o.EmotionalTendencies) == 0 &&
		len(o.CommunicationPrefs) == 0 &&
		len(o.Values) == 0 &&
		len(o.StressResponses) == 0 &&
		len(o.Boundaries) == 0 &&
		o.HumorStyle == "" &&
		o.Notes == ""
}

// Merge applies an observation to the summary in place: deduplicated unions
// for arrays, overwrite-if-present for scalars, append for free text.
func (s *PersonalitySummary) Merge(o PersonalityObservation) {
	s.Traits = unionStrings(s.Traits, o.Traits)
	s.EmotionalTendencies = unionStrings(s.EmotionalTendencies, o.EmotionalTendencies)
	s.CommunicationPrefs = unionStrings(s.CommunicationPrefs, o.CommunicationPrefs)
	s.Values = unionStrings(s.Values, o.Values)
	s.StressResponses = unionStrings(s.StressResponses, o.StressResponses)
	s.Boundaries = unionStrings(s.Boundaries, o.Boundaries)

	if o.HumorStyle != "" {
		s.HumorStyle = o.HumorStyle
	}
	if o.Notes != "" {
		if s.Notes != "" {
			s.Notes += "\n"
		}
		s.Notes += o.Notes
	}
}

// unionStrings appends the elements of add that are not already present in
// base, comparing case-insensitively on trimmed text. Order is preserved.
func unionStrings(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[strings.ToLower(strings.TrimSpace(v))] = true
	}
	for _, v := range add {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		base = append(base, strings.TrimSpace(v))
	}
	return base
}

// PartnerProfile holds observations about a user's partner gathered before a
// partnership link exists. Once a partnership is active, shared memories take
// over and the profile is no longer written.
type PartnerProfile struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name,omitempty"`
	Observations []string `json:"observations,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Merge folds new partner observations into the profile. The name overwrites
// when present; observation lines are unioned.
func (p *PartnerProfile) Merge(name string, observations []string) {
	if name != "" {
		p.Name = name
	}
	p.Observations = unionStrings(p.Observations, observations)
}
