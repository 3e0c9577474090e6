package port

import "context"

// CompleteOptions carries generation constraints passed to the completion
// service. Length hints are best effort; the service may exceed them.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}

// Completer is a black-box text completion service.
type Completer interface {
	// Complete generates text for the prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the completion model.
	ModelName() string
}
