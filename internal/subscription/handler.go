package subscription

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/auditlog"
	"github.com/mehdiessalah/eventyBackend/middleware"
	"github.com/mehdiessalah/eventyBackend/utils"
)

type Handler struct {
	Service  *Service
	AuditSvc auditlog.Service
}

func NewHandler(s *Service, auditSvc auditlog.Service) *Handler {
	return &Handler{Service: s, AuditSvc: auditSvc}
}

// ListSubscriptions - GET /dashboard/subscriptions
// @Summary Event ids the caller is subscribed to
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SubscriptionsResponse
// @Router /api/v1/dashboard/subscriptions [get]
func (h *Handler) ListSubscriptions(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ids, err := h.Service.ListSubscribedEventIDs(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SubscriptionsResponse{EventIDs: ids})
}

// Subscribe - POST /dashboard/subscriptions/:eventId
// @Summary Subscribe the caller to an event (idempotent)
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Success 200 {object} StatusResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/dashboard/subscriptions/{eventId} [post]
func (h *Handler) Subscribe(c *gin.Context) {
	userID, eventID, ok := params(c)
	if !ok {
		return
	}

	if err := h.Service.Subscribe(c.Request.Context(), userID, eventID); err != nil {
		h.audit(c, userID, eventID, auditlog.ActionSubscribed, err)
		utils.RespondError(c, err)
		return
	}

	h.audit(c, userID, eventID, auditlog.ActionSubscribed, nil)
	c.JSON(http.StatusOK, StatusResponse{EventID: eventID, Subscribed: true})
}

// Unsubscribe - DELETE /dashboard/subscriptions/:eventId
// and POST /dashboard/subscriptions/:eventId/unsubscribe
// @Summary Unsubscribe the caller from an event (idempotent)
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Success 200 {object} StatusResponse
// @Router /api/v1/dashboard/subscriptions/{eventId} [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	userID, eventID, ok := params(c)
	if !ok {
		return
	}

	if err := h.Service.Unsubscribe(c.Request.Context(), userID, eventID); err != nil {
		h.audit(c, userID, eventID, auditlog.ActionUnsubscribed, err)
		utils.RespondError(c, err)
		return
	}

	h.audit(c, userID, eventID, auditlog.ActionUnsubscribed, nil)
	c.JSON(http.StatusOK, StatusResponse{EventID: eventID, Subscribed: false})
}

func params(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}
	eventID, ok := utils.ParseUUIDParam(c, "eventId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, eventID, true
}

func (h *Handler) audit(c *gin.Context, userID, eventID uuid.UUID, action string, cause error) {
	if h.AuditSvc == nil {
		return
	}

	status := auditlog.StatusSuccess
	var details map[string]interface{}
	if cause != nil {
		status = auditlog.StatusFailure
		details = map[string]interface{}{"error": cause.Error()}
	}

	ip := middleware.GetIPFromContext(c)
	if err := h.AuditSvc.LogAction(c.Request.Context(), &userID, &eventID, action, details, ip, status); err != nil {
		slog.WarnContext(c.Request.Context(), "audit log failed", "action", action, "error", err)
	}
}
