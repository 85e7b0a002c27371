// Package extract turns fetched HTML into a normalized-but-unverified
// RecipeDraft. Embedded schema.org Recipe linked data is preferred; when no
// structured block exists it falls back to scanning the visible DOM for
// ingredient and instruction lists.
package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/internal/parse"
	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

// Extraction methods reported by Extract.
const (
	MethodJSONLD    = "json-ld"
	MethodHeuristic = "heuristic"
)

const (
	sentinelIngredient  = "See source recipe"
	sentinelInstruction = "See source recipe for instructions"

	// Inline images narrower than this are assumed to be icons or ads.
	minInlineImageWidth = 200
)

var instructionKeywords = []string{"instruction", "direction", "step", "method", "preparation"}

// Limits caps how much text leaves the extractor. Downstream components rely
// on these being enforced here.
type Limits struct {
	MaxIngredients     int
	MaxSteps           int
	MaxIngredientChars int
	MaxStepChars       int
}

// Extractor produces recipe drafts from HTML.
type Extractor struct {
	limits Limits
	log    *logrus.Logger
}

// NewExtractor creates an Extractor with the given limits.
func NewExtractor(limits Limits, log *logrus.Logger) *Extractor {
	if limits.MaxIngredients == 0 {
		limits.MaxIngredients = types.MaxRecipeIngredients
	}
	if limits.MaxSteps == 0 {
		limits.MaxSteps = types.MaxRecipeSteps
	}
	if limits.MaxIngredientChars == 0 {
		limits.MaxIngredientChars = 100
	}
	if limits.MaxStepChars == 0 {
		limits.MaxStepChars = types.MaxInstructionChars
	}
	if log == nil {
		log = logrus.New()
	}
	return &Extractor{limits: limits, log: log}
}

// Extract produces a draft from html along with the extraction method used.
// It always returns a non-empty draft: when neither structured markup nor
// heuristics find ingredients or steps, sentinel placeholder lines are
// emitted instead of failing.
func (e *Extractor) Extract(html string) (*types.RecipeDraft, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.log.WithError(err).Warn("HTML parse failed, emitting sentinel draft")
		return e.sentinelDraft(), MethodHeuristic
	}

	if node := findRecipeNode(doc); node != nil {
		return e.fromJSONLD(node), MethodJSONLD
	}

	return e.fromHeuristics(doc), MethodHeuristic
}

// findRecipeNode scans the page's linked-data blocks for an object typed as
// Recipe. The @type attribute may be a single string or an array; @graph
// wrappers and top-level arrays are searched one level deep.
func findRecipeNode(doc *goquery.Document) map[string]interface{} {
	var found map[string]interface{}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if node := recipeNodeIn(data); node != nil {
			found = node
			return false
		}
		return true
	})

	return found
}

func recipeNodeIn(data interface{}) map[string]interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if isRecipeType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]interface{}); ok && isRecipeType(node["@type"]) {
					return node
				}
			}
		}
	case []interface{}:
		for _, item := range v {
			if node, ok := item.(map[string]interface{}); ok && isRecipeType(node["@type"]) {
				return node
			}
		}
	}
	return nil
}

func isRecipeType(typeVal interface{}) bool {
	switch t := typeVal.(type) {
	case string:
		return t == "Recipe"
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// fromJSONLD maps a schema.org Recipe node into a draft. Ingredient and
// instruction lines stay raw; quantity splitting and per-step durations are
// the normalizer's job.
func (e *Extractor) fromJSONLD(node map[string]interface{}) *types.RecipeDraft {
	draft := &types.RecipeDraft{
		Name:        types.Truncate(stringValue(node["name"], "Recipe"), types.MaxNameChars),
		Description: types.Truncate(stringValue(node["description"], ""), types.MaxDescriptionChars),
		Servings:    types.DefaultServings,
	}

	prep, hasPrep := parse.FlexibleDuration(node["prepTime"])
	cook, hasCook := parse.FlexibleDuration(node["cookTime"])
	if hasPrep {
		draft.PrepTimeMinutes = prep
	}
	if hasCook {
		draft.CookTimeMinutes = cook
	}
	// A page that only advertises totalTime is treated as all cook time.
	if !hasPrep && !hasCook {
		if total, ok := parse.FlexibleDuration(node["totalTime"]); ok {
			draft.CookTimeMinutes = total
		}
	}

	for _, key := range []string{"recipeYield", "yield", "servings"} {
		if servings, ok := parse.Servings(node[key]); ok {
			draft.Servings = servings
			break
		}
	}

	draft.ImageURL = types.Truncate(resolveImage(node["image"]), types.MaxImageURLChars)

	if ingredients, ok := node["recipeIngredient"].([]interface{}); ok {
		for _, item := range ingredients {
			if len(draft.RawIngredientLines) >= e.limits.MaxIngredients {
				break
			}
			if line := strings.TrimSpace(stringValue(item, "")); line != "" {
				draft.RawIngredientLines = append(draft.RawIngredientLines, types.Truncate(line, e.limits.MaxIngredientChars))
			}
		}
	}

	for _, line := range instructionLines(node["recipeInstructions"]) {
		if len(draft.RawInstructionLines) >= e.limits.MaxSteps {
			break
		}
		draft.RawInstructionLines = append(draft.RawInstructionLines, types.Truncate(line, e.limits.MaxStepChars))
	}

	e.fillSentinels(draft)
	return draft
}

// instructionLines flattens recipeInstructions, which may be a bare string, a
// list of strings, a list of HowToStep objects, or HowToSection wrappers.
func instructionLines(value interface{}) []string {
	var lines []string

	var walk func(v interface{}, depth int)
	walk = func(v interface{}, depth int) {
		if depth > 2 {
			return
		}
		switch item := v.(type) {
		case string:
			if text := strings.TrimSpace(item); text != "" {
				lines = append(lines, text)
			}
		case []interface{}:
			for _, inner := range item {
				walk(inner, depth+1)
			}
		case map[string]interface{}:
			if text, ok := item["text"].(string); ok {
				if text = strings.TrimSpace(text); text != "" {
					lines = append(lines, text)
				}
				return
			}
			if elements, ok := item["itemListElement"]; ok {
				walk(elements, depth+1)
			}
		}
	}
	walk(value, 0)

	return lines
}

// resolveImage handles the image field arriving as a bare URL string, an
// object with a url key, or a list of either. The first resolvable URL wins.
func resolveImage(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if u, ok := v["url"].(string); ok {
			return strings.TrimSpace(u)
		}
	case []interface{}:
		for _, item := range v {
			switch inner := item.(type) {
			case string:
				if u := strings.TrimSpace(inner); u != "" {
					return u
				}
			case map[string]interface{}:
				if u, ok := inner["url"].(string); ok && strings.TrimSpace(u) != "" {
					return strings.TrimSpace(u)
				}
			}
		}
	}
	return ""
}

// fromHeuristics scrapes the visible DOM: the first page heading (or Open
// Graph title) for the name, list elements near "ingredient" mentions for
// ingredients, and list elements near instruction keywords for steps.
func (e *Extractor) fromHeuristics(doc *goquery.Document) *types.RecipeDraft {
	draft := &types.RecipeDraft{
		Name:     "Imported Recipe",
		Servings: types.DefaultServings,
	}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		draft.Name = h1
	} else if ogTitle, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(ogTitle) != "" {
		draft.Name = strings.TrimSpace(ogTitle)
	}
	draft.Name = types.Truncate(draft.Name, types.MaxNameChars)

	draft.ImageURL = types.Truncate(e.findImage(doc), types.MaxImageURLChars)

	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		container := list.ParentsFiltered("div, section, article").First()
		if container.Length() == 0 {
			return
		}
		containerText := strings.ToLower(container.Text())

		if strings.Contains(containerText, "ingredient") {
			list.Find("li").Each(func(_ int, li *goquery.Selection) {
				if len(draft.RawIngredientLines) >= e.limits.MaxIngredients {
					return
				}
				text := strings.TrimSpace(li.Text())
				if len(text) > 2 {
					draft.RawIngredientLines = append(draft.RawIngredientLines, types.Truncate(text, e.limits.MaxIngredientChars))
				}
			})
		}

		if containsAny(containerText, instructionKeywords) {
			list.Find("li").Each(func(_ int, li *goquery.Selection) {
				if len(draft.RawInstructionLines) >= e.limits.MaxSteps {
					return
				}
				text := strings.TrimSpace(li.Text())
				if len(text) > 5 {
					draft.RawInstructionLines = append(draft.RawInstructionLines, types.Truncate(text, e.limits.MaxStepChars))
				}
			})
		}
	})

	e.fillSentinels(draft)
	return draft
}

// findImage looks for an Open Graph image, then a schema-marked image
// element, then the first inline image wide enough to be a photo.
func (e *Extractor) findImage(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}

	schemaImage := doc.Find(`[itemprop="image"]`).First()
	if src, ok := schemaImage.Attr("src"); ok && src != "" {
		return src
	}
	if content, ok := schemaImage.Attr("content"); ok && content != "" {
		return content
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return true
		}
		width, ok := img.Attr("width")
		if !ok {
			return true
		}
		if w, err := strconv.Atoi(width); err == nil && w >= minInlineImageWidth {
			found = src
			return false
		}
		return true
	})
	return found
}

func (e *Extractor) fillSentinels(draft *types.RecipeDraft) {
	if len(draft.RawIngredientLines) == 0 {
		draft.RawIngredientLines = []string{sentinelIngredient}
	}
	if len(draft.RawInstructionLines) == 0 {
		draft.RawInstructionLines = []string{sentinelInstruction}
	}
}

func (e *Extractor) sentinelDraft() *types.RecipeDraft {
	draft := &types.RecipeDraft{Name: "Imported Recipe", Servings: types.DefaultServings}
	e.fillSentinels(draft)
	return draft
}

func stringValue(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
