package engine

import (
	"regexp"
	"strings"
)

// Extraction cadence: every third user turn, starting with the first.
const extractionCadence = 3

// Importance patterns cover both languages the companion speaks. A match on
// the latest user turn forces extraction regardless of cadence.
var importancePatterns = []*regexp.Regexp{
	// Mentions of the partner.
	regexp.MustCompile(`(?i)\bmy (girlfriend|boyfriend|wife|husband|partner|fianc[ée]e?)\b`),
	regexp.MustCompile(`(?i)\bmi (novi[oa]|espos[oa]|pareja|prometid[oa])\b`),
	// Emotionally loaded statements.
	regexp.MustCompile(`(?i)\bi (love|hate|miss|adore|resent|appreciate)\b`),
	regexp.MustCompile(`(?i)\bi('m| am| feel) (so |really |very )?(sad|angry|upset|anxious|hurt|frustrated|happy|excited|stressed|worried|unsafe|scared|afraid|lonely)\b`),
	regexp.MustCompile(`(?i)\b(te |la |lo |los |las )?(amo|quiero|odio|extraño)\b`),
	regexp.MustCompile(`(?i)\bme (siento|sent[ií]) (muy |tan |bastante )?(triste|enojad[oa]|molest[oa]|ansios[oa]|herid[oa]|frustrad[oa]|feliz|emocionad[oa]|estresad[oa]|preocupad[oa]|insegur[oa]|asustad[oa]|sol[oa])\b`),
	// Biographical disclosures.
	regexp.MustCompile(`(?i)\bmy (birthday|anniversary|mom|dad|mother|father|sister|brother|family|job|work)\b`),
	regexp.MustCompile(`(?i)\bmy name('s| is)\b`),
	regexp.MustCompile(`(?i)\bmi (cumpleaños|aniversario|mam[áa]|pap[áa]|madre|padre|herman[oa]|familia|trabajo)\b`),
	regexp.MustCompile(`(?i)\bme llamo\b`),
	regexp.MustCompile(`(?i)\bnuestr[oa] (aniversario|relaci[óo]n|boda)\b`),
	// Health disclosures.
	regexp.MustCompile(`(?i)\bdiagnos(ed|is)\b`),
	regexp.MustCompile(`(?i)\bdiagn[óo]stic`),
	// Explicit requests to remember.
	regexp.MustCompile(`(?i)\b(remember|don't forget|note) (this|that)\b`),
	regexp.MustCompile(`(?i)\brecu[ée]rda(lo|me|te)?\b`),
	regexp.MustCompile(`(?i)\bno (te )?olvides\b`),
}

// TriggerEvaluator decides whether a user turn should start an extraction
// pass. It is stateless; the caller supplies the running user-turn count.
type TriggerEvaluator struct{}

// NewTriggerEvaluator returns a ready evaluator.
func NewTriggerEvaluator() *TriggerEvaluator {
	return &TriggerEvaluator{}
}

// ShouldExtract reports whether extraction should run after the latest user
// turn. userTurnCount is the total number of user turns in the conversation
// including the latest one; a count of zero never triggers.
func (t *TriggerEvaluator) ShouldExtract(userTurnCount int, latestTurn string) bool {
	if userTurnCount <= 0 {
		return false
	}
	if (userTurnCount-1)%extractionCadence == 0 {
		return true
	}
	return t.matchesImportance(latestTurn)
}

func (t *TriggerEvaluator) matchesImportance(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	for _, pat := range importancePatterns {
		if pat.MatchString(content) {
			return true
		}
	}
	return false
}
