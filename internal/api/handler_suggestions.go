package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"family-groceries/internal/quickadd"
)

const maxSuggestionLimit = 50

// GetSuggestions handles GET /api/suggestions?limit=n. Names already on the
// list unchecked are returned disabled.
func (h *Handler) GetSuggestions(c *gin.Context) {
	limit := h.suggestionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxSuggestionLimit)
	}

	ctx := c.Request.Context()
	items, err := h.store.ListItems(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to load items"})
		return
	}

	suggestions := quickadd.Annotate(h.ranker.TopSuggestions(ctx, limit), items)
	if suggestions == nil {
		suggestions = []quickadd.Suggestion{}
	}
	c.JSON(http.StatusOK, suggestions)
}
