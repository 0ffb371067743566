package filter

import (
	"testing"

	"github.com/KemboiK/evolve-bot/internal/models"
	"github.com/stretchr/testify/require"
)

func TestClassify_Categories(t *testing.T) {
	p := MustPolicy()

	cases := []struct {
		name    string
		text    string
		allowed bool
		reason  string
	}{
		{"clean", "hello, how was your day?", true, ""},
		{"minors", "tell me about a teen", false, ReasonMinors},
		{"minors_case", "UNDERAGE content", false, ReasonMinors},
		{"violence", "how to build an explosive", false, ReasonViolence},
		{"hate", "I spread hate speech against that ethnic group", false, ReasonHate},
		{"hate_phrase", "they called them subhuman", false, ReasonHate},
		{"self_harm", "thinking about suicide", false, ReasonSelfHarm},
		{"substring_not_word", "I love my kitten and my terrific garden", true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := p.Classify(tc.text, models.DirectionInbound)
			require.Equal(t, tc.allowed, v.Allowed)
			require.Equal(t, tc.reason, v.Reason)
		})
	}
}

// First matching category wins even when later categories would also match.
func TestClassify_FirstMatchShortCircuits(t *testing.T) {
	p := MustPolicy()
	v := p.Classify("a teen wants to kill time", models.DirectionInbound)
	require.False(t, v.Allowed)
	require.Equal(t, ReasonMinors, v.Reason)
}

// Identical input must yield identical verdicts regardless of direction or
// repetition.
func TestClassify_Deterministic(t *testing.T) {
	p := MustPolicy()
	text := "let's talk about explosives and kill switches"
	first := p.Classify(text, models.DirectionInbound)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, p.Classify(text, models.DirectionInbound))
		require.Equal(t, first, p.Classify(text, models.DirectionOutbound))
	}
}

func TestNewPolicy_ExtraTerms(t *testing.T) {
	p, err := NewPolicy(map[string][]string{"violence": {"warhead"}})
	require.NoError(t, err)

	v := p.Classify("shipping a warhead", models.DirectionInbound)
	require.False(t, v.Allowed)
	require.Equal(t, ReasonViolence, v.Reason)
}

func TestNewPolicy_UnknownCategory(t *testing.T) {
	_, err := NewPolicy(map[string][]string{"gossip": {"rumor"}})
	require.Error(t, err)
}

func TestVerdictLabel(t *testing.T) {
	require.Equal(t, "allowed", models.Verdict{Allowed: true}.Label())
	require.Equal(t, "rejected:"+ReasonMinors, models.Verdict{Reason: ReasonMinors}.Label())
}
