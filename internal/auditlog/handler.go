package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/middleware"
	"github.com/mehdiessalah/eventyBackend/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetAuditLogs handles GET /auditlogs. Callers only see their own trail.
// @Summary Get audit logs
// @Description Retrieve the caller's audit logs with optional filters and pagination
// @Tags AuditLog
// @Produce json
// @Security BearerAuth
// @Param event_id query string false "Filter by event ID"
// @Param action query string false "Filter by action (partial match)"
// @Param status query string false "Filter by status"
// @Param from_date query string false "Filter from date (YYYY-MM-DD)"
// @Param to_date query string false "Filter to date (YYYY-MM-DD)"
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Number of records per page (default: 20)"
// @Success 200 {object} PaginatedAuditLogs
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/auditlogs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	filter.UserID = &userID

	result, err := h.service.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAuditLogByID handles GET /auditlogs/:id
// @Summary Get audit log by ID
// @Tags AuditLog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Audit Log ID"
// @Success 200 {object} AuditLog
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/auditlogs/{id} [get]
func (h *Handler) GetAuditLogByID(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid audit log ID"})
		return
	}

	log, err := h.service.GetAuditLogByID(c.Request.Context(), uint(id))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	// someone else's entry looks missing
	if log.UserID == nil || *log.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit log not found"})
		return
	}
	c.JSON(http.StatusOK, log)
}

// GetAuditLogStats handles GET /auditlogs/stats
// @Summary Get audit log statistics for the last 7 days
// @Tags AuditLog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/auditlogs/stats [get]
func (h *Handler) GetAuditLogStats(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.service.GetAuditLogStats(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func parseFilter(c *gin.Context) (AuditLogFilter, bool) {
	filter := AuditLogFilter{
		Action: c.Query("action"),
		Status: c.Query("status"),
	}

	if raw := c.Query("event_id"); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return filter, false
		}
		filter.EventID = &eventID
	}

	if raw := c.Query("from_date"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date format, use YYYY-MM-DD"})
			return filter, false
		}
		filter.FromDate = &from
	}

	if raw := c.Query("to_date"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_date format, use YYYY-MM-DD"})
			return filter, false
		}
		endOfDay := to.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &endOfDay
	}

	filter.Page = 1
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	filter.Limit = 20
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	return filter, true
}
