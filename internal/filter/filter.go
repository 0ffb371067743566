// Package filter implements the deterministic content filter. A Policy is an
// ordered set of disallowed categories, each backed by word-boundary regexes
// compiled once at startup. Identical input always yields identical verdicts.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/KemboiK/evolve-bot/internal/models"
)

// Rejection reason codes, one per category.
const (
	ReasonMinors   = "sexual_content_referencing_minors"
	ReasonViolence = "violent_or_illegal_content"
	ReasonHate     = "hate_speech_content"
	ReasonSelfHarm = "self_harm_content"
)

type category struct {
	name     string
	reason   string
	patterns []*regexp.Regexp
}

// Policy is the process-wide filter configuration. It is immutable after
// construction and safe for concurrent use.
type Policy struct {
	categories []category
}

// defaultTerms lists the built-in blocked terms per category, in evaluation
// order. The minors category is checked first: a match there must win over
// any later category.
var defaultTerms = []struct {
	name   string
	reason string
	terms  []string
}{
	{"minors", ReasonMinors, []string{"child", "underage", "teen", "minor"}},
	{"violence", ReasonViolence, []string{"kill", "terror", "explosive", "bomb"}},
	{"hate", ReasonHate, []string{"hate speech", "ethnic cleansing", "racial purity", "subhuman"}},
	{"self_harm", ReasonSelfHarm, []string{"suicide", "self-harm"}},
}

// NewPolicy builds the filter policy from the built-in categories, merging in
// any extra terms keyed by category name. Unknown category names are rejected
// so a config typo cannot silently weaken the filter.
func NewPolicy(extraTerms map[string][]string) (*Policy, error) {
	known := make(map[string]bool, len(defaultTerms))
	p := &Policy{}
	for _, def := range defaultTerms {
		known[def.name] = true
		terms := append([]string{}, def.terms...)
		terms = append(terms, extraTerms[def.name]...)
		c := category{name: def.name, reason: def.reason}
		for _, term := range terms {
			re, err := compileTerm(term)
			if err != nil {
				return nil, fmt.Errorf("filter: bad term %q in category %s: %w", term, def.name, err)
			}
			c.patterns = append(c.patterns, re)
		}
		p.categories = append(p.categories, c)
	}
	for name := range extraTerms {
		if !known[name] {
			return nil, fmt.Errorf("filter: unknown category %q in blocked_terms", name)
		}
	}
	return p, nil
}

// MustPolicy is NewPolicy without the error path, for tests and defaults.
func MustPolicy() *Policy {
	p, err := NewPolicy(nil)
	if err != nil {
		panic(err)
	}
	return p
}

func compileTerm(term string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(term)) + `\b`)
}

// Classify runs the policy's categories in order against text. The first
// matching category short-circuits and its reason is returned. Inbound and
// outbound text are judged by exactly the same rules; the direction exists so
// callers state which leg they are filtering.
func (p *Policy) Classify(text string, _ models.Direction) models.Verdict {
	for _, c := range p.categories {
		for _, re := range c.patterns {
			if re.MatchString(text) {
				return models.Verdict{Allowed: false, Reason: c.reason}
			}
		}
	}
	return models.Verdict{Allowed: true}
}
