package engine

import "testing"

func TestTriggerCadence(t *testing.T) {
	evaluator := NewTriggerEvaluator()

	cases := []struct {
		count int
		want  bool
	}{
		{0, false},
		{1, true},
		{2, false},
		{3, false},
		{4, true},
		{5, false},
		{6, false},
		{7, true},
		{10, true},
	}
	for _, tc := range cases {
		got := evaluator.ShouldExtract(tc.count, "just some neutral chatter about the weather")
		if got != tc.want {
			t.Errorf("turn %d: got %v, want %v", tc.count, got, tc.want)
		}
	}
}

func TestTriggerImportancePatterns(t *testing.T) {
	evaluator := NewTriggerEvaluator()

	// Off-cadence turn count so only the pattern can trigger.
	const offCadence = 2

	matching := []string{
		"my girlfriend Sofia loves tulips",
		"I love how she laughs at my jokes",
		"I'm really anxious about tomorrow",
		"my anniversary is coming up in March",
		"I feel unsafe when we argue",
		"my name is Jordan by the way",
		"I was diagnosed with ADHD last year",
		"remember this: she hates surprises",
		"mi novia se llama Lucia",
		"te quiero mucho",
		"me siento muy triste hoy",
		"nuestro aniversario es el 12 de octubre",
		"me siento insegura cuando discutimos",
		"me llamo Valentina",
		"me diagnosticaron ansiedad el año pasado",
		"recuerda esto por favor, recuérdalo bien",
		"no te olvides de su cumpleaños",
	}
	for _, content := range matching {
		t.Run(content, func(t *testing.T) {
			if !evaluator.ShouldExtract(offCadence, content) {
				t.Errorf("expected importance match for %q", content)
			}
		})
	}

	neutral := []string{
		"what should we have for dinner tonight",
		"can you explain how mortgages work",
		"",
		"   ",
	}
	for _, content := range neutral {
		if evaluator.ShouldExtract(offCadence, content) {
			t.Errorf("unexpected trigger for %q", content)
		}
	}
}

func TestTriggerZeroTurnsNeverFires(t *testing.T) {
	evaluator := NewTriggerEvaluator()
	if evaluator.ShouldExtract(0, "I love my girlfriend") {
		t.Error("zero turn count must never trigger")
	}
	if evaluator.ShouldExtract(-1, "I love my girlfriend") {
		t.Error("negative turn count must never trigger")
	}
}
