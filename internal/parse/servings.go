package parse

import (
	"math"
	"regexp"
	"strconv"
)

var digitsRe = regexp.MustCompile(`\d+`)

// maxServingsDepth bounds recursion while resolving servings values. Inputs
// are externally sourced, so at most one list level and one object level are
// unwrapped (e.g. [{"value": "4-6"}]).
const maxServingsDepth = 2

// Servings resolves a JSON-LD servings/yield value of unknown shape
// (number, free text, range string, list, or keyed object) into an integer.
// The first parseable numeric token wins: "4-6" resolves to 4. Returns false
// when nothing parses; callers default to 4.
func Servings(value interface{}) (int, bool) {
	return servingsAt(value, 0)
}

func servingsAt(value interface{}, depth int) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v < 1 {
			return 0, false
		}
		return int(math.Round(v)), true
	case int:
		if v < 1 {
			return 0, false
		}
		return v, true
	case string:
		if digits := digitsRe.FindString(v); digits != "" {
			if n, err := strconv.Atoi(digits); err == nil && n >= 1 {
				return n, true
			}
		}
	case []interface{}:
		if depth >= maxServingsDepth {
			return 0, false
		}
		for _, item := range v {
			if n, ok := servingsAt(item, depth+1); ok {
				return n, true
			}
		}
	case map[string]interface{}:
		if depth >= maxServingsDepth {
			return 0, false
		}
		for _, key := range []string{"value", "@value"} {
			if inner, ok := v[key]; ok {
				if n, ok := servingsAt(inner, depth+1); ok {
					return n, true
				}
			}
		}
	}
	return 0, false
}
