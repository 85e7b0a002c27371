package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalDuration(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		seconds int
		ok      bool
	}{
		{"minutes", "20 minutes", 1200, true},
		{"hours", "2 hours", 7200, true},
		{"single hour", "1 hour", 3600, true},
		{"seconds", "30 secs", 30, true},
		{"abbreviated", "45 min", 2700, true},
		{"stacked units", "1 hour 30 minutes", 5400, true},
		{"word range", "8 to 10 minutes", 540, true},
		{"dash range", "30-45 min", 2250, true},
		{"range midpoint rounds", "5 to 10 minutes", 450, true},
		{"hour range", "1 to 2 hours", 5400, true},
		{"decimal", "1.5 hours", 5400, true},
		{"embedded in sentence", "Simmer for 25 minutes until thick", 1500, true},
		{"no duration", "season to taste", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seconds, ok := NaturalDuration(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.seconds, seconds)
			}
		})
	}
}

func TestISO8601Duration(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		minutes int
		ok      bool
	}{
		{"hours and minutes", "PT1H30M", 90, true},
		{"minutes only", "PT20M", 20, true},
		{"hours only", "PT2H", 120, true},
		{"days", "P1D", 1440, true},
		{"days hours minutes", "P1DT2H5M", 1565, true},
		{"lowercase", "pt10m", 10, true},
		{"seconds only is unspecified", "PT0S", 0, false},
		{"bare P", "P", 0, false},
		{"not a duration", "an hour or so", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, ok := ISO8601Duration(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.minutes, minutes)
			}
		})
	}
}

func TestFlexibleDuration(t *testing.T) {
	t.Run("numeric passthrough", func(t *testing.T) {
		minutes, ok := FlexibleDuration(float64(25))
		assert.True(t, ok)
		assert.Equal(t, 25, minutes)
	})

	t.Run("iso string", func(t *testing.T) {
		minutes, ok := FlexibleDuration("PT45M")
		assert.True(t, ok)
		assert.Equal(t, 45, minutes)
	})

	t.Run("natural string", func(t *testing.T) {
		minutes, ok := FlexibleDuration("1 hour 30 minutes")
		assert.True(t, ok)
		assert.Equal(t, 90, minutes)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, ok := FlexibleDuration("soon")
		assert.False(t, ok)
	})

	t.Run("nil", func(t *testing.T) {
		_, ok := FlexibleDuration(nil)
		assert.False(t, ok)
	})
}
