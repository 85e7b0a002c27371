package parse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unit tokens recognized after a leading quantity. Matching is on the
// lowercased token with trailing punctuation stripped.
var unitTokens = map[string]bool{
	"cup": true, "cups": true,
	"tablespoon": true, "tablespoons": true, "tbsp": true, "tbs": true,
	"teaspoon": true, "teaspoons": true, "tsp": true,
	"ounce": true, "ounces": true, "oz": true,
	"pound": true, "pounds": true, "lb": true, "lbs": true,
	"gram": true, "grams": true, "g": true,
	"kilogram": true, "kilograms": true, "kg": true,
	"milliliter": true, "milliliters": true, "ml": true,
	"liter": true, "liters": true, "litre": true, "litres": true, "l": true,
	"clove": true, "cloves": true,
	"pinch": true, "pinches": true,
	"dash": true, "dashes": true,
	"can": true, "cans": true,
	"slice": true, "slices": true,
	"piece": true, "pieces": true,
	"stick": true, "sticks": true,
	"quart": true, "quarts": true,
	"pint": true, "pints": true,
	"gallon": true, "gallons": true,
	"package": true, "packages": true, "pkg": true,
	"bunch": true, "bunches": true,
	"sprig": true, "sprigs": true,
	"head": true, "heads": true,
	"stalk": true, "stalks": true,
}

var (
	// "1 (10 pound) ham" style parenthetical amounts.
	parentheticalRe = regexp.MustCompile(`^(\d+(?:\s+\d+/\d+|/\d+|\.\d+)?\s*\([^)]*\))\s*(.+)$`)

	// Leading numeric expression: "2", "2.5", "1/2", "2 1/2".
	leadingNumberRe = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+\.\d+|\d+)\s*`)

	alphaWordRe = regexp.MustCompile(`^[a-zA-Z]+$`)

	decimalRe = regexp.MustCompile(`\d+\.\d+`)
)

// Cooking fractions and the decimal values they print as. Decimals within
// fractionTolerance of one of these are folded back to fraction form, since
// fractional units are the conventional presentation in recipes.
var cookingFractions = []struct {
	value float64
	text  string
}{
	{1.0 / 3.0, "1/3"},
	{2.0 / 3.0, "2/3"},
	{0.25, "1/4"},
	{0.75, "3/4"},
	{0.5, "1/2"},
	{0.125, "1/8"},
	{0.375, "3/8"},
	{0.625, "5/8"},
	{0.875, "7/8"},
}

const fractionTolerance = 0.01

// SplitIngredientLine splits a raw ingredient line into a quantity expression
// and a name. It recognizes a leading parenthetical amount ("1 (10 pound)
// ham") or a number optionally followed by unit tokens, falling back to a
// split at the first pure-alphabetic word. Lines with no leading number come
// back whole as the name with an empty quantity.
func SplitIngredientLine(text string) (quantity, name string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	if m := parentheticalRe.FindStringSubmatch(text); m != nil {
		return normalizeFractions(strings.TrimSpace(m[1])), strings.TrimSpace(m[2])
	}

	m := leadingNumberRe.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}

	number := strings.TrimSpace(m[1])
	rest := strings.TrimSpace(text[len(m[0]):])

	// Consume unit tokens after the number, single or stacked
	// ("2 cups", "1 8 oz can" handled by the caller's raw text).
	words := strings.Fields(rest)
	consumed := 0
	for _, word := range words {
		token := strings.ToLower(strings.Trim(word, ".,"))
		if !unitTokens[token] {
			break
		}
		consumed++
	}

	if consumed > 0 {
		quantity = number + " " + strings.Join(words[:consumed], " ")
		name = strings.Join(words[consumed:], " ")
		return normalizeFractions(quantity), strings.TrimSpace(name)
	}

	// No unit: split at the first pure-alphabetic word.
	for i, word := range words {
		if alphaWordRe.MatchString(word) {
			prefix := strings.Join(words[:i], " ")
			if prefix != "" {
				number = number + " " + prefix
			}
			return normalizeFractions(number), strings.Join(words[i:], " ")
		}
	}

	return normalizeFractions(strings.TrimSpace(number + " " + rest)), ""
}

// normalizeFractions rewrites decimal quantities that are common cooking
// fractions ("2.5" -> "2 1/2", "0.33" -> "1/3") back into fraction form.
func normalizeFractions(quantity string) string {
	return decimalRe.ReplaceAllStringFunc(quantity, func(token string) string {
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return token
		}

		whole := math.Floor(value)
		frac := value - whole

		for _, cf := range cookingFractions {
			if math.Abs(frac-cf.value) <= fractionTolerance {
				if whole >= 1 {
					return fmt.Sprintf("%d %s", int(whole), cf.text)
				}
				return cf.text
			}
		}
		return token
	})
}
