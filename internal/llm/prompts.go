package llm

import (
	"fmt"
	"strings"
)

// ExtractionTemperature is the temperature used for extraction and
// regeneration calls. Low variance keeps the structured output stable.
const ExtractionTemperature = 0.35

// ExtractionSystemPrompt is the fixed system instruction for memory
// extraction. The output schema matches ExtractionResult in
// response_parser.go; every field is optional and an empty object means
// "nothing worth remembering".
const ExtractionSystemPrompt = `You are the memory subsystem of a couples companion app. You read a short window of conversation between a user and their companion and distill durable facts worth remembering long-term.

OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.
Your response MUST start with { and end with }.

REQUIRED JSON STRUCTURE (every field optional, omit what does not apply):
{
  "personality": {
    "traits": ["..."],
    "emotional_tendencies": ["..."],
    "communication_prefs": ["..."],
    "values": ["..."],
    "stress_responses": ["..."],
    "boundaries": ["..."],
    "humor_style": "...",
    "notes": "..."
  },
  "partner_profile": {"name": "...", "observations": ["..."]},
  "personal_memories": [
    {"category": "preference|emotional_need|important_date|growth_moment|pattern|goal|general",
     "content": "one-sentence fact about the user",
     "confidence": 0.9,
     "contradicts": "exact text of an existing memory this supersedes, if any"}
  ],
  "shared_memories": [
    {"category": "preference|emotional_need|important_date|gift_idea|growth_moment|pattern|general",
     "about": "user|partner|relationship",
     "content": "one-sentence fact about the relationship",
     "confidence": 0.9,
     "contradicts": "exact text of an existing memory this supersedes, if any"}
  ],
  "insights": [
    {"category": "emotional_need|communication|appreciation|conflict_style|growth_area|strength|gift_relevant",
     "about": "user|partner|relationship",
     "title": "short title",
     "content": "one-sentence observation",
     "confidence": 0.8}
  ]
}

RULES:
- Only extract facts that matter weeks from now. Ignore small talk.
- Do NOT repeat facts already listed in EXISTING MEMORIES.
- Set "contradicts" to the EXACT existing memory text when a new fact supersedes it.
- If nothing is worth remembering, return {}.`

// ExtractionPrompt builds the user message for an extraction call from the
// recent conversation window and the existing-memory digest.
func ExtractionPrompt(conversation, memoryDigest string) string {
	var b strings.Builder
	b.WriteString("RECENT CONVERSATION:\n")
	b.WriteString(conversation)
	b.WriteString("\n\nEXISTING MEMORIES (do not re-extract these):\n")
	if strings.TrimSpace(memoryDigest) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(memoryDigest)
	}
	return b.String()
}

// RegenerationSystemPrompt is the fixed system instruction for insight
// regeneration. The output schema matches RegenerationResult.
const RegenerationSystemPrompt = `You maintain the derived insights of a couples companion app. You are given the currently active memories for a couple and the insights previously derived from them. Decide which insights no longer hold and which new ones can be derived.

OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.
Your response MUST start with { and end with }.

REQUIRED JSON STRUCTURE:
{
  "outdated_titles": ["exact title of an existing insight that no longer holds"],
  "new_insights": [
    {"category": "emotional_need|communication|appreciation|conflict_style|growth_area|strength|gift_relevant",
     "about": "user|partner|relationship",
     "title": "short title",
     "content": "one-sentence observation",
     "confidence": 0.8}
  ]
}

RULES:
- Mark an insight outdated ONLY when current memories contradict or obsolete it.
- Do NOT repeat an existing insight as a new one.
- If nothing changes, return {}.`

// RegenerationPrompt builds the user message for an insight regeneration
// call.
func RegenerationPrompt(memoryDigest, insightDigest string) string {
	var b strings.Builder
	b.WriteString("CURRENT ACTIVE MEMORIES:\n")
	if strings.TrimSpace(memoryDigest) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(memoryDigest)
	}
	b.WriteString("\n\nEXISTING INSIGHTS:\n")
	if strings.TrimSpace(insightDigest) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(insightDigest)
	}
	return b.String()
}

// DigestLine formats one memory or insight line for a prompt digest.
func DigestLine(scope, category, content string, confidence float64) string {
	return fmt.Sprintf("[%s/%s] %s (confidence %.2f)", scope, category, content, confidence)
}
