package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuckycastle/mealtogether/backend/internal/fetch"
	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

type stubImporter struct {
	recipe *types.ImportedRecipe
	method string
	err    error
}

func (s *stubImporter) ImportRecipe(ctx context.Context, url string) (*types.ImportedRecipe, string, error) {
	return s.recipe, s.method, s.err
}

func importedFixture(timers int) *types.ImportedRecipe {
	recipe := &types.ImportedRecipe{
		Name:      "Simple Bread",
		PrepTime:  10,
		CookTime:  20,
		Servings:  2,
		SourceURL: "https://example.com/bread",
		Ingredients: []types.Ingredient{
			{Name: "flour", Quantity: "2 cups"},
		},
		Steps: []types.Step{
			{Order: 1, Instruction: "Bake for 20 minutes."},
		},
	}
	for i := 0; i < timers; i++ {
		recipe.Timers = append(recipe.Timers, types.Timer{Name: "Bake", Duration: 1200})
	}
	return recipe
}

func importTestRouter(importer RecipeImporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewImportHandler(importer, log).RegisterRoutes(v1)
	return router
}

func postImport(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportEndpoint(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		router := importTestRouter(&stubImporter{})
		w := postImport(t, router, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := importTestRouter(&stubImporter{})
		w := postImport(t, router, `not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("fetch errors map to 400", func(t *testing.T) {
		router := importTestRouter(&stubImporter{
			err: fetch.ErrUnsafeURL,
		})
		w := postImport(t, router, `{"url": "http://169.254.169.254/latest"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("parse errors map to 422 with generic message", func(t *testing.T) {
		router := importTestRouter(&stubImporter{
			err: errors.New("no recipe markup found"),
		})
		w := postImport(t, router, `{"url": "https://example.com/bread"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Could not parse recipe from URL", body["error"])
	})

	t.Run("successful import", func(t *testing.T) {
		router := importTestRouter(&stubImporter{
			recipe: importedFixture(1),
			method: "ai",
		})
		w := postImport(t, router, `{"url": "https://example.com/bread"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.ImportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ai", resp.ExtractionMethod)
		assert.Equal(t, "high", resp.Confidence)
		assert.Equal(t, "Simple Bread", resp.Recipe.Name)
	})
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		method string
		timers int
		want   string
	}{
		{name: "ai with timers", method: "ai", timers: 1, want: "high"},
		{name: "ai without timers", method: "ai", timers: 0, want: "medium"},
		{name: "json-ld", method: "json-ld", timers: 2, want: "medium"},
		{name: "heuristic", method: "heuristic", timers: 1, want: "low"},
		{name: "cached", method: "cached", timers: 0, want: "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confidence(tt.method, importedFixture(tt.timers)))
		})
	}
}
