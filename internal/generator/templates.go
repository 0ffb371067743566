package generator

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/KemboiK/evolve-bot/internal/models"
)

// replyTemplates produce varied but deterministic replies when no provider
// is configured. Every template takes the user's name; templates with
// wantsSnippet set also get a quoted excerpt of the message.
var replyTemplates = []struct {
	format       string
	wantsSnippet bool
}{
	{"Hey %s, thanks for writing. I love hearing from you. Tell me more: what's one small thing that made you smile today?", false},
	{"You said %[2]q and I'd like to hear the rest, %[1]s. What else is on your mind?", true},
	{"Hi %s. I'm here to listen and enjoy this conversation with you. What are you in the mood to talk about right now?", false},
	{"That sounds interesting, %s. I enjoy deep conversations as much as light ones. Want to go deeper or keep it playful?", false},
}

const (
	maxSnippetLen = 80
	defaultName   = "Friend"
)

// Templates is a local reply generator used when no provider API key is
// configured. It never fails and identical input always yields the identical
// reply.
type Templates struct{}

// NewTemplates creates the template responder.
func NewTemplates() *Templates {
	return &Templates{}
}

// Generate picks a template by hashing the message text, so determinism holds
// without any shared state. An empty name falls back to a generic address.
func (t *Templates) Generate(_ context.Context, _ []models.Record, text, name string) (string, error) {
	if name == "" {
		name = defaultName
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	tmpl := replyTemplates[int(h.Sum32()%uint32(len(replyTemplates)))]

	if !tmpl.wantsSnippet {
		return fmt.Sprintf(tmpl.format, name), nil
	}

	snippet := text
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen] + "..."
	}
	return fmt.Sprintf(tmpl.format, name, snippet), nil
}
