// Package parse contains the pure text-to-value parsers used by recipe
// extraction and normalization: duration parsing (ISO-8601 and natural
// language), servings resolution over heterogeneous JSON-LD shapes, and
// ingredient quantity splitting. No I/O happens here.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// A value, an optional "to"/dash range partner, and a time unit.
	naturalDurationRe = regexp.MustCompile(`(\d+(?:\.\d+)?)(?:\s*(?:-|–|\bto\b)\s*(\d+(?:\.\d+)?))?\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?)\b`)

	iso8601Re = regexp.MustCompile(`(?i)^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:\d+(?:\.\d+)?S)?)?$`)
)

func unitSeconds(unit string) float64 {
	switch {
	case strings.HasPrefix(unit, "h"):
		return 3600
	case strings.HasPrefix(unit, "m"):
		return 60
	default:
		return 1
	}
}

// NaturalDuration parses a natural-language duration ("20 minutes",
// "1 hour 30 minutes", "30 secs") into seconds. When a numeric range is
// present ("8 to 10 minutes", "30-45 min") the midpoint of the two bounds is
// used before the unit multiplier, rounded to an integer, which mirrors how a
// cook reads a time range. Returns false when no duration is found.
func NaturalDuration(text string) (int, bool) {
	if text == "" {
		return 0, false
	}

	matches := naturalDurationRe.FindAllStringSubmatch(strings.ToLower(text), -1)
	if len(matches) == 0 {
		return 0, false
	}

	// A range such as "8 to 10 minutes" stands alone; otherwise stacked
	// units ("1 hour 30 minutes") accumulate.
	first := matches[0]
	if first[2] != "" {
		low, _ := strconv.ParseFloat(first[1], 64)
		high, _ := strconv.ParseFloat(first[2], 64)
		return int(math.Round((low + high) / 2 * unitSeconds(first[3]))), true
	}

	total := 0.0
	for _, m := range matches {
		if m[2] != "" {
			continue
		}
		value, _ := strconv.ParseFloat(m[1], 64)
		total += value * unitSeconds(m[3])
	}
	return int(math.Round(total)), true
}

// ISO8601Duration parses an ISO-8601 duration token such as "PT1H30M" into
// minutes, accumulating day, hour and minute components. Returns false (not
// zero) when no day/hour/minute component matched, so callers can tell
// "unspecified" apart from "zero minutes"; "PT0S" therefore does not parse.
func ISO8601Duration(text string) (int, bool) {
	m := iso8601Re.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	if m[1] == "" && m[2] == "" && m[3] == "" {
		return 0, false
	}

	total := 0.0
	if m[1] != "" {
		days, _ := strconv.ParseFloat(m[1], 64)
		total += days * 1440
	}
	if m[2] != "" {
		hours, _ := strconv.ParseFloat(m[2], 64)
		total += hours * 60
	}
	if m[3] != "" {
		minutes, _ := strconv.ParseFloat(m[3], 64)
		total += minutes
	}
	return int(math.Round(total)), true
}

// FlexibleDuration resolves a JSON-LD time value of unknown shape into
// minutes. Numbers pass through directly; strings are tried as ISO-8601 first
// and natural language second.
func FlexibleDuration(value interface{}) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(math.Round(v)), true
	case int:
		return v, true
	case string:
		if minutes, ok := ISO8601Duration(v); ok {
			return minutes, true
		}
		if seconds, ok := NaturalDuration(v); ok {
			return int(math.Round(float64(seconds) / 60)), true
		}
	}
	return 0, false
}
