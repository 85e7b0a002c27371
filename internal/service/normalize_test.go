package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuckycastle/mealtogether/backend/internal/store"
	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

type stubProvider struct {
	name     string
	response string
	err      error
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

const validResponse = `{
	"name": "Tomato Soup",
	"description": "",
	"prep_time": 5,
	"cook_time": 20,
	"servings": 4,
	"image_url": "",
	"ingredients": [{"name": "tomatoes", "quantity": "6"}],
	"steps": [{"order": 1, "instruction": "Simmer for 20 minutes.", "estimated_time": 20}]
}`

func testDraft() *types.RecipeDraft {
	return &types.RecipeDraft{
		Name:               "Tomato Soup",
		Servings:           4,
		RawIngredientLines: []string{"6 tomatoes"},
		RawInstructionLines: []string{
			"Simmer for 20 minutes.",
		},
	}
}

func newTestNormalizer(providers ...Provider) (*Normalizer, *CircuitBreaker) {
	breaker := NewCircuitBreaker(store.NewMemoryStore(), 5, 15*time.Minute, testLogger())
	return NewNormalizer(providers, breaker, time.Second, testLogger()), breaker
}

func TestNormalizer(t *testing.T) {
	ctx := context.Background()

	t.Run("no providers configured", func(t *testing.T) {
		n, _ := newTestNormalizer()
		_, err := n.Normalize(ctx, testDraft())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("primary success", func(t *testing.T) {
		primary := &stubProvider{name: "anthropic", response: validResponse}
		secondary := &stubProvider{name: "openai", err: errors.New("should not be called")}
		n, _ := newTestNormalizer(primary, secondary)

		recipe, err := n.Normalize(ctx, testDraft())
		require.NoError(t, err)
		assert.Equal(t, "Tomato Soup", recipe.Name)
		assert.Equal(t, 20, recipe.CookTime)
		assert.Equal(t, 0, secondary.calls)
	})

	t.Run("failover to secondary", func(t *testing.T) {
		primary := &stubProvider{name: "anthropic", err: errors.New("timeout")}
		secondary := &stubProvider{name: "openai", response: validResponse}
		n, breaker := newTestNormalizer(primary, secondary)

		recipe, err := n.Normalize(ctx, testDraft())
		require.NoError(t, err)
		assert.Equal(t, "Tomato Soup", recipe.Name)
		assert.Equal(t, 1, primary.calls)
		assert.Equal(t, 1, secondary.calls)
		assert.Equal(t, 0, breaker.Status(ctx).ConsecutiveFailures)
	})

	t.Run("garbage responses count as failures", func(t *testing.T) {
		primary := &stubProvider{name: "anthropic", response: "not json at all"}
		secondary := &stubProvider{name: "openai", response: "still not json"}
		n, breaker := newTestNormalizer(primary, secondary)

		_, err := n.Normalize(ctx, testDraft())
		assert.ErrorIs(t, err, ErrNormalizationFailed)
		assert.Equal(t, 2, breaker.Status(ctx).ConsecutiveFailures)
	})

	t.Run("fenced response is recovered", func(t *testing.T) {
		primary := &stubProvider{name: "anthropic", response: "```json\n" + validResponse + "\n```"}
		n, _ := newTestNormalizer(primary)

		recipe, err := n.Normalize(ctx, testDraft())
		require.NoError(t, err)
		assert.Equal(t, "Tomato Soup", recipe.Name)
	})

	t.Run("open circuit skips providers and records failures", func(t *testing.T) {
		primary := &stubProvider{name: "anthropic", response: validResponse}
		n, breaker := newTestNormalizer(primary)

		for i := 0; i < 5; i++ {
			breaker.RecordFailure(ctx)
		}
		_, err := n.Normalize(ctx, testDraft())
		assert.ErrorIs(t, err, ErrNormalizationFailed)
		assert.Equal(t, 0, primary.calls)
		assert.Equal(t, 6, breaker.Status(ctx).ConsecutiveFailures)
	})
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain object", input: `{"a": 1}`, want: `{"a": 1}`},
		{name: "fenced with language", input: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "fenced without language", input: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "surrounding prose", input: "Here you go: {\"a\": 1} hope that helps", want: `{"a": 1}`},
		{name: "no json", input: "sorry, I cannot do that", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
