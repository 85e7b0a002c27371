package types

import "fmt"

// Schema limits for imported recipes. Collections are truncated to these
// bounds, never rejected.
const (
	MaxNameChars        = 200
	MaxDescriptionChars = 1000
	MaxImageURLChars    = 500
	MaxInstructionChars = 500
	MaxTimeMinutes      = 1440
	MaxStepMinutes      = 28800
	MaxTimerSeconds     = 28800
	MaxServings         = 100
	DefaultServings     = 4
	MaxRecipeIngredients = 50
	MaxRecipeSteps       = 30
	MaxRecipeTimers      = 20
)

// RecipeDraft is the mutable working structure produced by extraction and
// consumed by normalization. Ingredient and instruction lines stay raw so the
// normalizer can do the quantity/name splitting and timer extraction itself.
// Numeric fields are always present, never null.
type RecipeDraft struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	PrepTimeMinutes     int      `json:"prep_time"`
	CookTimeMinutes     int      `json:"cook_time"`
	Servings            int      `json:"servings"`
	ImageURL            string   `json:"image_url"`
	RawIngredientLines  []string `json:"ingredients"`
	RawInstructionLines []string `json:"instructions"`
}

// Ingredient is a single ingredient of an imported recipe. Quantity is free
// text and may retain fractions like "1/2".
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Step is a single cooking step. EstimatedTime is in minutes and nil when no
// duration could be detected.
type Step struct {
	Order         int    `json:"order"`
	Instruction   string `json:"instruction"`
	EstimatedTime *int   `json:"estimated_time"`
}

// Timer is a countdown derived from a step or reported by the normalizer.
// Duration is in seconds. StepOrder links back to the step that produced the
// timer, when known.
type Timer struct {
	Name      string `json:"name"`
	Duration  int    `json:"duration"`
	StepOrder *int   `json:"step_order"`
}

// ImportedRecipe is the validated output of the import pipeline and the only
// artifact persisted in the cache or returned to the caller.
type ImportedRecipe struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	PrepTime    int          `json:"prep_time"`
	CookTime    int          `json:"cook_time"`
	Servings    int          `json:"servings"`
	ImageURL    string       `json:"image_url"`
	SourceURL   string       `json:"source_url"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	Timers      []Timer      `json:"timers"`
}

// ImportResponse is the payload returned by the import endpoint.
type ImportResponse struct {
	Recipe           *ImportedRecipe `json:"recipe"`
	Confidence       string          `json:"confidence"`
	ExtractionMethod string          `json:"extraction_method"`
}

// Truncate shortens text to at most max characters.
func Truncate(text string, max int) string {
	if len(text) > max {
		return text[:max]
	}
	return text
}

// Clamp enforces the schema bounds by truncating strings and collections and
// clamping numeric fields into range. Truncation is silent and deterministic;
// re-clamping an already clamped recipe is a no-op.
func (r *ImportedRecipe) Clamp() {
	r.Name = Truncate(r.Name, MaxNameChars)
	r.Description = Truncate(r.Description, MaxDescriptionChars)
	r.ImageURL = Truncate(r.ImageURL, MaxImageURLChars)
	r.PrepTime = clampInt(r.PrepTime, 0, MaxTimeMinutes)
	r.CookTime = clampInt(r.CookTime, 0, MaxTimeMinutes)
	r.Servings = clampInt(r.Servings, 1, MaxServings)

	if len(r.Ingredients) > MaxRecipeIngredients {
		r.Ingredients = r.Ingredients[:MaxRecipeIngredients]
	}
	for i := range r.Ingredients {
		r.Ingredients[i].Name = Truncate(r.Ingredients[i].Name, MaxNameChars)
		r.Ingredients[i].Quantity = Truncate(r.Ingredients[i].Quantity, 100)
	}

	if len(r.Steps) > MaxRecipeSteps {
		r.Steps = r.Steps[:MaxRecipeSteps]
	}
	for i := range r.Steps {
		r.Steps[i].Order = clampInt(r.Steps[i].Order, 1, 50)
		r.Steps[i].Instruction = Truncate(r.Steps[i].Instruction, MaxInstructionChars)
		if r.Steps[i].EstimatedTime != nil {
			v := clampInt(*r.Steps[i].EstimatedTime, 0, MaxStepMinutes)
			r.Steps[i].EstimatedTime = &v
		}
	}

	if len(r.Timers) > MaxRecipeTimers {
		r.Timers = r.Timers[:MaxRecipeTimers]
	}
	for i := range r.Timers {
		r.Timers[i].Name = Truncate(r.Timers[i].Name, MaxNameChars)
		r.Timers[i].Duration = clampInt(r.Timers[i].Duration, 1, MaxTimerSeconds)
		if r.Timers[i].StepOrder != nil {
			v := clampInt(*r.Timers[i].StepOrder, 1, 50)
			r.Timers[i].StepOrder = &v
		}
	}
}

// Validate reports whether the recipe satisfies the parts of the schema that
// cannot be repaired by clamping. Callers should Clamp first.
func (r *ImportedRecipe) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("recipe name is required")
	}
	if r.SourceURL == "" {
		return fmt.Errorf("source URL is required")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("at least one ingredient is required")
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for _, ing := range r.Ingredients {
		if ing.Name == "" {
			return fmt.Errorf("ingredient name is required")
		}
	}
	for _, step := range r.Steps {
		if step.Instruction == "" {
			return fmt.Errorf("step %d instruction is required", step.Order)
		}
	}
	return nil
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
