package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServings(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  int
		ok    bool
	}{
		{"number", float64(6), 6, true},
		{"numeric string", "8", 8, true},
		{"range string takes first", "4-6", 4, true},
		{"free text", "Serves 12 people", 12, true},
		{"list first parseable wins", []interface{}{"oops", "4-6"}, 4, true},
		{"value object", map[string]interface{}{"value": "10"}, 10, true},
		{"at-value object", map[string]interface{}{"@value": float64(3)}, 3, true},
		{"nested list of objects", []interface{}{map[string]interface{}{"value": "4-6"}}, 4, true},
		{"zero", float64(0), 0, false},
		{"no digits", "a few", 0, false},
		{"nil", nil, 0, false},
		{"pathological nesting rejected", []interface{}{[]interface{}{[]interface{}{"4"}}}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Servings(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestServingsIdempotentUnderNesting(t *testing.T) {
	flat, ok := Servings("4-6")
	assert.True(t, ok)

	nested, ok2 := Servings([]interface{}{map[string]interface{}{"value": "4-6"}})
	assert.True(t, ok2)

	assert.Equal(t, flat, nested)
	assert.Equal(t, 4, flat)
}
