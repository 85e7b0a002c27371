package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonLDPage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Recipe",
  "name": "Garlic Butter Shrimp",
  "description": "Quick weeknight shrimp.",
  "prepTime": "PT10M",
  "cookTime": "PT20M",
  "recipeYield": "4-6",
  "image": [{"url": "https://example.com/shrimp.jpg"}],
  "recipeIngredient": ["1 pound shrimp", "2 cups rice"],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Melt butter over medium heat."},
    {"@type": "HowToStep", "text": "Cook shrimp for 8 to 10 minutes."}
  ]
}
</script>
</head><body><h1>Not the recipe title</h1></body></html>`

func newTestExtractor() *Extractor {
	return NewExtractor(Limits{}, nil)
}

func TestExtractJSONLD(t *testing.T) {
	draft, method := newTestExtractor().Extract(jsonLDPage)

	assert.Equal(t, MethodJSONLD, method)
	assert.Equal(t, "Garlic Butter Shrimp", draft.Name)
	assert.Equal(t, "Quick weeknight shrimp.", draft.Description)
	assert.Equal(t, 10, draft.PrepTimeMinutes)
	assert.Equal(t, 20, draft.CookTimeMinutes)
	assert.Equal(t, 4, draft.Servings)
	assert.Equal(t, "https://example.com/shrimp.jpg", draft.ImageURL)
	assert.Equal(t, []string{"1 pound shrimp", "2 cups rice"}, draft.RawIngredientLines)
	require.Len(t, draft.RawInstructionLines, 2)
	assert.Equal(t, "Melt butter over medium heat.", draft.RawInstructionLines[0])
}

func TestExtractJSONLDTypeArray(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type": ["Recipe", "Thing"], "name": "Chili", "recipeIngredient": ["1 can beans"], "recipeInstructions": "Simmer everything."}
	</script></head><body></body></html>`

	draft, method := newTestExtractor().Extract(page)
	assert.Equal(t, MethodJSONLD, method)
	assert.Equal(t, "Chili", draft.Name)
	assert.Equal(t, []string{"Simmer everything."}, draft.RawInstructionLines)
}

func TestExtractJSONLDGraph(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@graph": [
		{"@type": "WebPage", "name": "page"},
		{"@type": "Recipe", "name": "Focaccia", "totalTime": "PT1H", "recipeIngredient": ["4 cups flour"], "recipeInstructions": ["Mix.", "Bake."]}
	]}
	</script></head><body></body></html>`

	draft, method := newTestExtractor().Extract(page)
	assert.Equal(t, MethodJSONLD, method)
	assert.Equal(t, "Focaccia", draft.Name)
	// Only a total time: treated as cook time.
	assert.Equal(t, 0, draft.PrepTimeMinutes)
	assert.Equal(t, 60, draft.CookTimeMinutes)
}

func TestExtractJSONLDServingsShapes(t *testing.T) {
	tests := []struct {
		name     string
		yield    string
		servings int
	}{
		{"number", `6`, 6},
		{"range string", `"4-6"`, 4},
		{"list", `["8 servings"]`, 8},
		{"unparseable defaults", `"a crowd"`, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<html><head><script type="application/ld+json">
			{"@type": "Recipe", "name": "R", "recipeYield": ` + tt.yield + `, "recipeIngredient": ["x y z"], "recipeInstructions": ["Cook it well."]}
			</script></head><body></body></html>`

			draft, _ := newTestExtractor().Extract(page)
			assert.Equal(t, tt.servings, draft.Servings)
		})
	}
}

func TestExtractHeuristic(t *testing.T) {
	page := `<html><head>
	<meta property="og:image" content="https://example.com/soup.jpg">
	</head><body>
	<h1>Tomato Soup</h1>
	<div class="recipe-ingredients"><h2>Ingredients</h2>
		<ul><li>4 tomatoes</li><li>1 onion</li><li>x</li></ul>
	</div>
	<div class="recipe-directions"><h2>Directions</h2>
		<ol><li>Chop the vegetables roughly.</li><li>Simmer for 25 minutes.</li><li>ok</li></ol>
	</div>
	</body></html>`

	draft, method := newTestExtractor().Extract(page)

	assert.Equal(t, MethodHeuristic, method)
	assert.Equal(t, "Tomato Soup", draft.Name)
	assert.Equal(t, "https://example.com/soup.jpg", draft.ImageURL)
	// Short tokens are discarded.
	assert.Equal(t, []string{"4 tomatoes", "1 onion"}, draft.RawIngredientLines)
	assert.Equal(t, []string{"Chop the vegetables roughly.", "Simmer for 25 minutes."}, draft.RawInstructionLines)
}

func TestExtractHeuristicOGTitleFallback(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Best Brownies"></head><body><p>nothing</p></body></html>`

	draft, method := newTestExtractor().Extract(page)
	assert.Equal(t, MethodHeuristic, method)
	assert.Equal(t, "Best Brownies", draft.Name)
}

func TestExtractSentinelsWhenNothingFound(t *testing.T) {
	draft, method := newTestExtractor().Extract("<html><body><p>blog spam</p></body></html>")

	assert.Equal(t, MethodHeuristic, method)
	assert.Equal(t, []string{"See source recipe"}, draft.RawIngredientLines)
	assert.Equal(t, []string{"See source recipe for instructions"}, draft.RawInstructionLines)
	assert.Equal(t, 4, draft.Servings)
}

func TestExtractTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("a", 300)
	page := `<html><body><h1>R</h1>
	<div><p>ingredients</p><ul><li>` + long + `</li></ul></div>
	</body></html>`

	e := NewExtractor(Limits{MaxIngredientChars: 100}, nil)
	draft, _ := e.Extract(page)
	require.Len(t, draft.RawIngredientLines, 1)
	assert.Len(t, draft.RawIngredientLines[0], 100)
}

func TestExtractCapsListSizes(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><h1>Big</h1><div><span>ingredients</span><ul>`)
	for i := 0; i < 80; i++ {
		b.WriteString("<li>1 cup ingredient number ")
		b.WriteString(strings.Repeat("x", 5))
		b.WriteString("</li>")
	}
	b.WriteString("</ul></div></body></html>")

	e := NewExtractor(Limits{MaxIngredients: 50}, nil)
	draft, _ := e.Extract(b.String())
	assert.Len(t, draft.RawIngredientLines, 50)
}

func TestExtractInlineImageNeedsWidth(t *testing.T) {
	page := `<html><body><h1>R</h1>
	<img src="https://example.com/icon.png" width="32">
	<img src="https://example.com/hero.jpg" width="640">
	</body></html>`

	draft, _ := newTestExtractor().Extract(page)
	assert.Equal(t, "https://example.com/hero.jpg", draft.ImageURL)
}
