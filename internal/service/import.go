package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/internal/extract"
	"github.com/chuckycastle/mealtogether/backend/internal/parse"
	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

// Extraction methods reported alongside an import, in addition to the
// extractor's own json-ld and heuristic values.
const (
	MethodCached = "cached"
	MethodAI     = "ai"
)

// ErrCouldNotParse classifies failures after a successful fetch: extraction,
// normalization and validation problems. The API layer maps it to 422.
var ErrCouldNotParse = errors.New("could not parse recipe from URL")

// ImportService is the import pipeline coordinator: cache lookup, fetch,
// extraction, normalization, timer derivation, validation, cache write.
type ImportService struct {
	cache      *ImportCache
	fetcher    HTMLFetcher
	extractor  DraftExtractor
	normalizer RecipeNormalizer
	log        *logrus.Logger
}

func NewImportService(cache *ImportCache, fetcher HTMLFetcher, extractor DraftExtractor, normalizer RecipeNormalizer, log *logrus.Logger) *ImportService {
	return &ImportService{
		cache:      cache,
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		log:        log,
	}
}

// ImportRecipe runs the full pipeline for url and returns the validated
// recipe plus the extraction method that produced it. Fetch-phase errors are
// returned as-is so callers can classify them; everything after a successful
// fetch is wrapped in ErrCouldNotParse.
func (s *ImportService) ImportRecipe(ctx context.Context, url string) (*types.ImportedRecipe, string, error) {
	if cached, ok := s.cache.Get(ctx, url); ok {
		s.log.WithField("url", url).Debug("import served from cache")
		return cached, MethodCached, nil
	}

	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}

	draft, method := s.extractor.Extract(html)

	var recipe *types.ImportedRecipe
	normalized, err := s.normalizer.Normalize(ctx, draft)
	switch {
	case err == nil:
		recipe = recipeFromNormalized(normalized, draft)
		method = MethodAI
	case errors.Is(err, ErrNotConfigured):
		recipe = recipeFromDraft(draft)
	default:
		s.log.WithError(err).WithField("url", url).Warn("normalization unavailable, using regex fallback")
		recipe = recipeFromDraft(draft)
		method = extract.MethodHeuristic
	}

	recipe.SourceURL = url
	recipe.Timers = collectTimers(recipe.Steps, normalized)
	recipe.Clamp()
	if err := recipe.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCouldNotParse, err)
	}

	s.cache.Put(ctx, url, recipe)
	return recipe, method, nil
}

// recipeFromNormalized maps a provider response onto the final schema,
// falling back to draft fields where the provider left blanks.
func recipeFromNormalized(n *NormalizedRecipe, draft *types.RecipeDraft) *types.ImportedRecipe {
	recipe := &types.ImportedRecipe{
		Name:        n.Name,
		Description: n.Description,
		PrepTime:    n.PrepTime,
		CookTime:    n.CookTime,
		Servings:    n.Servings,
		ImageURL:    n.ImageURL,
		Ingredients: n.Ingredients,
	}
	if recipe.Name == "" {
		recipe.Name = draft.Name
	}
	if recipe.ImageURL == "" {
		recipe.ImageURL = draft.ImageURL
	}
	for i, step := range n.Steps {
		order := step.Order
		if order <= 0 {
			order = i + 1
		}
		recipe.Steps = append(recipe.Steps, types.Step{
			Order:         order,
			Instruction:   step.Instruction,
			EstimatedTime: step.EstimatedTime,
		})
	}
	if len(recipe.Steps) == 0 {
		recipe.Steps = []types.Step{{Order: 1, Instruction: "See source recipe for instructions"}}
	}
	return recipe
}

// recipeFromDraft builds the recipe deterministically from the draft: raw
// ingredient lines are split into quantity and name, and step durations come
// from natural language time mentions in the instructions.
func recipeFromDraft(draft *types.RecipeDraft) *types.ImportedRecipe {
	recipe := &types.ImportedRecipe{
		Name:        draft.Name,
		Description: draft.Description,
		PrepTime:    draft.PrepTimeMinutes,
		CookTime:    draft.CookTimeMinutes,
		Servings:    draft.Servings,
		ImageURL:    draft.ImageURL,
	}
	for _, line := range draft.RawIngredientLines {
		quantity, name := parse.SplitIngredientLine(line)
		if name == "" {
			name = line
		}
		recipe.Ingredients = append(recipe.Ingredients, types.Ingredient{
			Name:     name,
			Quantity: quantity,
		})
	}
	for i, line := range draft.RawInstructionLines {
		step := types.Step{Order: i + 1, Instruction: line}
		if seconds, ok := parse.NaturalDuration(line); ok {
			if minutes := seconds / 60; minutes > 0 {
				step.EstimatedTime = &minutes
			}
		}
		recipe.Steps = append(recipe.Steps, step)
	}
	return recipe
}

// collectTimers derives timers from the final steps and appends any timers
// the normalizer reported that the steps did not already produce. Provider
// durations are minute-based and converted to seconds here.
func collectTimers(steps []types.Step, normalized *NormalizedRecipe) []types.Timer {
	timers := DeriveTimers(steps)
	if normalized == nil {
		return timers
	}
	seen := make(map[string]bool, len(timers))
	for _, t := range timers {
		seen[t.Name] = true
	}
	for _, t := range normalized.Timers {
		if t.DurationMinutes <= 0 || t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		timers = append(timers, types.Timer{
			Name:      types.Truncate(t.Name, types.MaxNameChars),
			Duration:  t.DurationMinutes * 60,
			StepOrder: t.StepOrder,
		})
	}
	return timers
}
