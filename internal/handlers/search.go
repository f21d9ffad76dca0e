// internal/handlers/search.go
package handlers

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/services"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

type SearchHandler struct {
	db     *gorm.DB
	search *services.SearchService
}

func NewSearchHandler(db *gorm.DB, search *services.SearchService) *SearchHandler {
	return &SearchHandler{db: db, search: search}
}

// Search returns one page of mixed user and product matches for ?q=.
func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.BadRequestResponse(c, "Query parameter q is required", nil)
		return
	}
	page, perPage := utils.GetPageParams(c)

	items, total, err := h.search.Search(c.Request.Context(), h.db, query, page, perPage)
	if err != nil {
		utils.RenderError(c, err)
		return
	}

	link := utils.CollectionLink("/v1/search", perPage, url.Values{"q": {query}})
	utils.SuccessResponse(c, utils.NewCollection(items, total, page, perPage, link))
}
