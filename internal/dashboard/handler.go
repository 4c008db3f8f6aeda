package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mehdiessalah/eventyBackend/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// GetEvents - GET /dashboard/events
// @Summary Public events for the dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {array} event.Event
// @Router /api/v1/dashboard/events [get]
func (h *Handler) GetEvents(c *gin.Context) {
	events, err := h.Service.ListPublicEvents(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetCategories - GET /dashboard/categories
// @Summary Distinct categories of public events
// @Tags Dashboard
// @Produce json
// @Success 200 {array} string
// @Router /api/v1/dashboard/categories [get]
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.Service.ListDistinctCategories(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetTags - GET /dashboard/tags
// @Summary Distinct tags of public events
// @Tags Dashboard
// @Produce json
// @Success 200 {array} string
// @Router /api/v1/dashboard/tags [get]
func (h *Handler) GetTags(c *gin.Context) {
	tags, err := h.Service.ListDistinctTags(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}
