package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shopmesh/shopmesh/internal/search"
)

// handleProductSearch is the direct (non-conversational) search
// endpoint backing the storefront search bar. Public; the engine never
// errors, so the response is always a result list.
func (s *Server) handleProductSearch(c *gin.Context) {
	query := c.Query("q")

	limit := search.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > search.MaxLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 10"})
			return
		}
		limit = parsed
	}

	results := s.engine.Search(c.Request.Context(), query, limit)
	c.JSON(http.StatusOK, gin.H{"products": results})
}
