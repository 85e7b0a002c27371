package service

import (
	"context"

	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

// HTMLFetcher retrieves the HTML behind a recipe URL. Satisfied by
// *fetch.Fetcher.
type HTMLFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DraftExtractor turns fetched HTML into a recipe draft plus the extraction
// method used. Satisfied by *extract.Extractor.
type DraftExtractor interface {
	Extract(html string) (*types.RecipeDraft, string)
}

// RecipeNormalizer runs a draft through the normalization provider chain.
// Satisfied by *Normalizer.
type RecipeNormalizer interface {
	Normalize(ctx context.Context, draft *types.RecipeDraft) (*NormalizedRecipe, error)
}

// Provider is a single external text-completion binding. Providers are tried
// in order and share one circuit breaker.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
