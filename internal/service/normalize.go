package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

// ErrNotConfigured is returned when no normalization provider has an API key.
// The coordinator treats this differently from provider failure: the draft is
// used as-is and the extraction method is reported unchanged.
var ErrNotConfigured = errors.New("no normalization provider configured")

// ErrNormalizationFailed is returned when every configured provider failed or
// the circuit breaker blocked the attempt.
var ErrNormalizationFailed = errors.New("normalization failed")

const normalizePrompt = `You are a recipe normalizer. Return ONLY valid JSON matching this EXACT schema:

{
  "name": "string (1-200 chars)",
  "description": "string (0-1000 chars)",
  "prep_time": number,  // minutes (integer, 0-1440)
  "cook_time": number,  // minutes (integer, 0-1440)
  "servings": number,  // integer (1-100)
  "image_url": "string (0-500 chars) - Recipe image URL if found in source data. MUST be empty string if not found. DO NOT fabricate or invent URLs.",
  "ingredients": [
    {
      "name": "string (1-200 chars)",
      "quantity": "string (0-100 chars)"
    }
  ],
  "steps": [
    {
      "order": number,  // integer (1-50)
      "instruction": "string (1-500 chars)",
      "estimated_time": number | null  // minutes (integer, 0-28800) or null
    }
  ]
}

Rules:
- Keep steps concise and imperative (e.g., "Preheat oven to 350°F")
- CRITICAL: If input has prep_time > 0, use that EXACT value (do not modify)
- CRITICAL: If input has cook_time > 0, use that EXACT value (do not modify)
- CRITICAL: If input has servings != 4, use that EXACT value (do not modify)
- CRITICAL: If step has estimated_time > 0 in input, use that EXACT value (do not modify)
- Extract times from text ONLY if input value is 0/null
- NEVER return 0 for prep_time/cook_time if input has non-zero values
- For time ranges, use MIDPOINT (e.g., "8 to 10 minutes" → estimated_time: 9, "30-45 minutes" → estimated_time: 38)
- If step mentions "1 hour", convert to 60 minutes
- Set null only if no duration mentioned and none in input
- For ingredients: if quantity and name are already split in input, keep them split - do not merge
- For image_url: Leave as empty string if no image URL found in source. NEVER invent or generate placeholder image URLs.
- Preserve source URLs exactly as provided - do not modify them
- Don't invent data - use null or empty string if uncertain
- Preserve chronological order
- Remove marketing language ("delicious", "perfect", etc.)

Return ONLY the JSON object. No markdown, no explanation.

Input recipe to normalize:
`

// NormalizedRecipe is the JSON shape providers are instructed to return.
type NormalizedRecipe struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	PrepTime    int                `json:"prep_time"`
	CookTime    int                `json:"cook_time"`
	Servings    int                `json:"servings"`
	ImageURL    string             `json:"image_url"`
	Ingredients []types.Ingredient `json:"ingredients"`
	Steps       []NormalizedStep   `json:"steps"`
	Timers      []NormalizedTimer  `json:"timers"`
}

type NormalizedStep struct {
	Order         int    `json:"order"`
	Instruction   string `json:"instruction"`
	EstimatedTime *int   `json:"estimated_time"`
}

// NormalizedTimer is a timer as providers report it, with a minute-based
// duration. The coordinator converts it to seconds.
type NormalizedTimer struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	StepOrder       *int   `json:"step_order"`
}

// Normalizer runs a draft through the provider chain under the circuit
// breaker. Providers are tried in order; the first parseable response wins.
type Normalizer struct {
	providers []Provider
	breaker   *CircuitBreaker
	timeout   time.Duration
	log       *logrus.Logger
}

func NewNormalizer(providers []Provider, breaker *CircuitBreaker, timeout time.Duration, log *logrus.Logger) *Normalizer {
	return &Normalizer{providers: providers, breaker: breaker, timeout: timeout, log: log}
}

// Normalize sends the draft to each provider in turn. Every failed attempt,
// including one blocked by an open circuit, counts as a breaker failure.
func (n *Normalizer) Normalize(ctx context.Context, draft *types.RecipeDraft) (*NormalizedRecipe, error) {
	if len(n.providers) == 0 {
		return nil, ErrNotConfigured
	}

	payload, err := json.MarshalIndent(draftPayload(draft), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	prompt := normalizePrompt + string(payload)

	for _, p := range n.providers {
		if !n.breaker.CanAttempt(ctx) {
			n.log.WithField("provider", p.Name()).Info("circuit open, skipping provider")
			n.breaker.RecordFailure(ctx)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, n.timeout)
		text, err := p.Complete(callCtx, prompt)
		cancel()
		if err != nil {
			n.log.WithError(err).WithField("provider", p.Name()).Warn("provider call failed")
			n.breaker.RecordFailure(ctx)
			continue
		}

		recipe, err := parseNormalized(text)
		if err != nil {
			n.log.WithError(err).WithField("provider", p.Name()).Warn("provider returned unusable JSON")
			n.breaker.RecordFailure(ctx)
			continue
		}

		n.breaker.RecordSuccess(ctx)
		return recipe, nil
	}

	return nil, ErrNormalizationFailed
}

// draftPayload shapes the draft the way the prompt schema describes it, with
// ingredients as name/quantity pairs and steps carrying explicit order.
func draftPayload(draft *types.RecipeDraft) map[string]interface{} {
	ingredients := make([]map[string]string, 0, len(draft.RawIngredientLines))
	for _, line := range draft.RawIngredientLines {
		ingredients = append(ingredients, map[string]string{
			"name":     line,
			"quantity": "",
		})
	}
	steps := make([]map[string]interface{}, 0, len(draft.RawInstructionLines))
	for i, line := range draft.RawInstructionLines {
		steps = append(steps, map[string]interface{}{
			"order":          i + 1,
			"instruction":    line,
			"estimated_time": nil,
		})
	}
	return map[string]interface{}{
		"name":        draft.Name,
		"description": draft.Description,
		"prep_time":   draft.PrepTimeMinutes,
		"cook_time":   draft.CookTimeMinutes,
		"servings":    draft.Servings,
		"image_url":   draft.ImageURL,
		"ingredients": ingredients,
		"steps":       steps,
	}
}

func parseNormalized(text string) (*NormalizedRecipe, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var recipe NormalizedRecipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ExtractJSON pulls a JSON object out of provider response text, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if json.Valid([]byte(text)) {
		return []byte(text), nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate := []byte(text[start : end+1])
		if json.Valid(candidate) {
			return candidate, nil
		}
	}

	return nil, errors.New("no valid JSON found in response")
}
