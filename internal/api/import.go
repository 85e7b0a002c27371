package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/internal/extract"
	"github.com/chuckycastle/mealtogether/backend/internal/fetch"
	"github.com/chuckycastle/mealtogether/backend/internal/service"
	"github.com/chuckycastle/mealtogether/backend/internal/types"
)

// RecipeImporter runs the import pipeline. Satisfied by *service.ImportService.
type RecipeImporter interface {
	ImportRecipe(ctx context.Context, url string) (*types.ImportedRecipe, string, error)
}

type ImportHandler struct {
	importer RecipeImporter
	log      *logrus.Logger
}

func NewImportHandler(importer RecipeImporter, log *logrus.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, log: log}
}

func (h *ImportHandler) RegisterRoutes(router *gin.RouterGroup, mw ...gin.HandlerFunc) {
	recipes := router.Group("/recipes")
	{
		recipes.POST("/import", append(mw, h.ImportRecipe)...)
	}
}

type importRequest struct {
	URL string `json:"url"`
}

// ImportRecipe imports a recipe from a user-supplied URL. URL validation,
// fetch and size problems map to 400; parse and validation problems map to
// 422 with a generic message.
func (h *ImportHandler) ImportRecipe(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL required"})
		return
	}

	recipe, method, err := h.importer.ImportRecipe(c.Request.Context(), req.URL)
	if err != nil {
		if fetch.IsFetchError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.WithError(err).WithField("url", req.URL).Warn("recipe import failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not parse recipe from URL"})
		return
	}

	c.JSON(http.StatusOK, types.ImportResponse{
		Recipe:           recipe,
		Confidence:       confidence(method, recipe),
		ExtractionMethod: method,
	})
}

// confidence is derived from the extraction method rather than computed
// independently.
func confidence(method string, recipe *types.ImportedRecipe) string {
	switch {
	case method == service.MethodAI && len(recipe.Timers) > 0:
		return "high"
	case method == service.MethodAI || method == extract.MethodJSONLD:
		return "medium"
	default:
		return "low"
	}
}
