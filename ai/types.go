package ai

import "time"

// Candidate is one language-model backend configuration within the ordered
// fallback list.
type Candidate struct {
	// Model is the provider's model identifier.
	Model string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after the first.
	MaxRetries int

	// Temperature is the fixed sampling temperature.
	Temperature float64
}

// Attempts returns the total number of calls the candidate may receive.
func (c Candidate) Attempts() int {
	if c.MaxRetries < 0 {
		return 1
	}
	return c.MaxRetries + 1
}
