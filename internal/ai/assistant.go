package ai

import "context"

// Generator produces text for a single prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
