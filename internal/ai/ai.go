// Package ai talks to an OpenAI-compatible model provider. The zero credential
// case is surfaced as ErrNotConfigured at call time so callers decide whether
// to degrade or fail.
package ai

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("OpenAI API key not configured. Set OPENAI_API_KEY to enable AI features")

// Client is the model-provider capability injected into the analyzer and the
// generators. CompleteJSON sends one chat request that must return a JSON
// object; GenerateImage returns the URL of a generated image.
type Client interface {
	CompleteJSON(ctx context.Context, system, prompt string, temperature float64) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
