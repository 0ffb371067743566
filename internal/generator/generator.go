// Package generator wraps the external text-generation capability. The
// provider is untrusted for both availability and output safety: callers must
// re-filter whatever comes back, and every failure here maps to one of the
// sentinel errors below so the pipeline can substitute the fixed fallback.
package generator

import "errors"

// Generation failure taxonomy.
var (
	// ErrProviderUnavailable covers network errors and timeouts.
	ErrProviderUnavailable = errors.New("generation provider unavailable")
	// ErrProviderRejected means the provider's own safety system declined.
	ErrProviderRejected = errors.New("generation provider rejected the request")
	// ErrMalformedResponse means the provider answered with nothing usable.
	ErrMalformedResponse = errors.New("malformed generation response")
)

// Fallback is the fixed, policy-safe reply substituted whenever generation
// fails or the generated text is rejected by the outbound filter.
const Fallback = "I'm sorry, I can't continue with that right now. Let's talk about something else."

const systemPrompt = "You are a warm, respectful conversational companion for adults. " +
	"Keep replies friendly and concise, and decline anything unsafe or inappropriate."
