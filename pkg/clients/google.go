package clients

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms/googleai"
)

// ModelType is an enum for the available Google AI models.
type ModelType string

const (
	// DefaultModel is used when no model is specified.
	DefaultModel ModelType = "gemini-3-flash-preview"
	ProModel     ModelType = "gemini-3-pro-preview"
)

// GoogleAi builds a langchaingo client for the given Gemini model, reading
// GOOGLE_API_KEY from the environment (loading .env first).
func GoogleAi(ctx context.Context, model ModelType) (*googleai.GoogleAI, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
	}

	switch model {
	case DefaultModel, ProModel:
	default:
		return nil, fmt.Errorf("invalid model type: %s", model)
	}

	// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}
	return llm, nil
}
