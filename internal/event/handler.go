package event

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mehdiessalah/eventyBackend/internal/auditlog"
	"github.com/mehdiessalah/eventyBackend/middleware"
	"github.com/mehdiessalah/eventyBackend/utils"
)

// SubscriberCounter reports how many users follow an event.
type SubscriberCounter interface {
	CountSubscribers(ctx context.Context, eventID uuid.UUID) (int64, error)
}

type Handler struct {
	Service       *Service
	Subscriptions SubscriberCounter
	AuditSvc      auditlog.Service

	UpcomingDefaultLimit int
	now                  func() time.Time
}

func NewHandler(s *Service, subs SubscriberCounter, auditSvc auditlog.Service, upcomingDefault int) *Handler {
	if upcomingDefault <= 0 {
		upcomingDefault = 10
	}
	return &Handler{
		Service:              s,
		Subscriptions:        subs,
		AuditSvc:             auditSvc,
		UpcomingDefaultLimit: upcomingDefault,
		now:                  time.Now,
	}
}

// ===========================
// 📄 List Events - GET /events
// @Summary List public events
// @Description Lists every public event. q searches title, description and location; from/to (RFC3339) select a start window.
// @Tags Events
// @Produce json
// @Param q query string false "Keyword"
// @Param from query string false "Start window lower bound (RFC3339)"
// @Param to query string false "Start window upper bound (RFC3339)"
// @Success 200 {array} Event
// @Failure 400 {object} map[string]string
// @Router /api/v1/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	ctx := c.Request.Context()

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" || toStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, use RFC3339"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, use RFC3339"})
			return
		}
		events, err := h.Service.FindPublicBetween(ctx, from, to)
		h.respondList(c, events, err)
		return
	}

	if q := c.Query("q"); q != "" {
		events, err := h.Service.SearchPublicEvents(ctx, q)
		h.respondList(c, events, err)
		return
	}

	events, err := h.Service.GetAllPublicEvents(ctx)
	h.respondList(c, events, err)
}

// ===========================
// 📆 Upcoming Events - GET /events/upcoming
// @Summary Upcoming public events
// @Tags Events
// @Produce json
// @Param limit query int false "Maximum number of events"
// @Success 200 {array} Event
// @Router /api/v1/events/upcoming [get]
func (h *Handler) GetUpcomingEvents(c *gin.Context) {
	limit := h.UpcomingDefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	events, err := h.Service.FindUpcoming(c.Request.Context(), h.now(), limit)
	h.respondList(c, events, err)
}

// GetEventsByCategory - GET /events/category/:category
// @Summary Public events in a category
// @Tags Events
// @Produce json
// @Param category path string true "Category (case-insensitive)"
// @Success 200 {array} Event
// @Router /api/v1/events/category/{category} [get]
func (h *Handler) GetEventsByCategory(c *gin.Context) {
	events, err := h.Service.FindByCategory(c.Request.Context(), c.Param("category"))
	h.respondList(c, events, err)
}

// GetEventsByTag - GET /events/tag/:tag
// @Summary Public events carrying a tag
// @Tags Events
// @Produce json
// @Param tag path string true "Tag (case-insensitive)"
// @Success 200 {array} Event
// @Router /api/v1/events/tag/{tag} [get]
func (h *Handler) GetEventsByTag(c *gin.Context) {
	events, err := h.Service.FindByTag(c.Request.Context(), c.Param("tag"))
	h.respondList(c, events, err)
}

// ===========================
// 🔍 Get Event - GET /events/:id
// @Summary Get a public event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} Event
// @Failure 404 {object} map[string]string
// @Router /api/v1/events/{id} [get]
func (h *Handler) GetEventByID(c *gin.Context) {
	id, ok := utils.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	e, err := h.Service.GetPublicEventByID(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if h.Subscriptions != nil {
		count, err := h.Subscriptions.CountSubscribers(c.Request.Context(), id)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "count subscribers failed", "event_id", id, "error", err)
		} else {
			e.SubscriberCount = int(count)
		}
	}

	c.JSON(http.StatusOK, e)
}

// ===========================
// 👤 My Events - GET /me/events
// @Summary Events owned by the caller, public or not
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Success 200 {array} Event
// @Router /api/v1/me/events [get]
func (h *Handler) GetMyEvents(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	events, err := h.Service.FindByOwner(c.Request.Context(), userID)
	h.respondList(c, events, err)
}

// ===========================
// 🎯 Create Event - POST /events
// @Summary Create an event owned by the caller
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body EventRequest true "Event"
// @Success 201 {object} Event
// @Failure 400 {object} map[string]string
// @Router /api/v1/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	e, err := h.Service.CreateEvent(c.Request.Context(), req.Draft(userID))
	if err != nil {
		h.audit(c, userID, nil, auditlog.ActionEventCreated, map[string]interface{}{
			"title": req.Title,
			"error": err.Error(),
		}, auditlog.StatusFailure)
		utils.RespondError(c, err)
		return
	}

	h.audit(c, userID, &e.ID, auditlog.ActionEventCreated, map[string]interface{}{
		"title":     e.Title,
		"category":  e.Category,
		"is_public": e.IsPublic,
	}, auditlog.StatusSuccess)

	c.JSON(http.StatusCreated, e)
}

// ===========================
// 🛠 Update Event - PUT /events/:id
// @Summary Replace every mutable field of an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param event body EventRequest true "Event"
// @Success 200 {object} Event
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/events/{id} [put]
func (h *Handler) UpdateEvent(c *gin.Context) {
	userID, id, ok := h.authorizeOwner(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	e, err := h.Service.UpdateEvent(c.Request.Context(), id, req.Draft(userID))
	if err != nil {
		h.audit(c, userID, &id, auditlog.ActionEventUpdated, map[string]interface{}{"error": err.Error()}, auditlog.StatusFailure)
		utils.RespondError(c, err)
		return
	}

	h.audit(c, userID, &id, auditlog.ActionEventUpdated, map[string]interface{}{"title": e.Title}, auditlog.StatusSuccess)
	c.JSON(http.StatusOK, e)
}

// ===========================
// 📆 Update Event Dates - PATCH /events/:id/dates
// @Summary Move an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param dates body UpdateDatesRequest true "New dates"
// @Success 200 {object} Event
// @Router /api/v1/events/{id}/dates [patch]
func (h *Handler) UpdateEventDates(c *gin.Context) {
	userID, id, ok := h.authorizeOwner(c)
	if !ok {
		return
	}

	var req UpdateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}

	e, err := h.Service.UpdateEventDates(c.Request.Context(), id, req.Start, req.End)
	if err != nil {
		h.audit(c, userID, &id, auditlog.ActionEventDatesUpdated, map[string]interface{}{"error": err.Error()}, auditlog.StatusFailure)
		utils.RespondError(c, err)
		return
	}

	h.audit(c, userID, &id, auditlog.ActionEventDatesUpdated, map[string]interface{}{
		"start": e.Start,
		"end":   e.End,
	}, auditlog.StatusSuccess)
	c.JSON(http.StatusOK, e)
}

// ===========================
// ❌ Delete Event - DELETE /events/:id
// @Summary Delete an event
// @Tags Events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Router /api/v1/events/{id} [delete]
func (h *Handler) DeleteEvent(c *gin.Context) {
	userID, id, ok := h.authorizeOwner(c)
	if !ok {
		return
	}

	if err := h.Service.DeleteEvent(c.Request.Context(), id); err != nil {
		h.audit(c, userID, &id, auditlog.ActionEventDeleted, map[string]interface{}{"error": err.Error()}, auditlog.StatusFailure)
		utils.RespondError(c, err)
		return
	}

	h.audit(c, userID, &id, auditlog.ActionEventDeleted, nil, auditlog.StatusSuccess)
	c.Status(http.StatusNoContent)
}

// authorizeOwner lets only the owner through. A private event owned by
// someone else answers 404 like a missing one.
func (h *Handler) authorizeOwner(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := callerID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := utils.ParseUUIDParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	e, err := h.Service.GetEventByID(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	if e.OwnerUserID != userID {
		if !e.IsPublic {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		} else {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can modify this event"})
		}
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return userID, ok
}

func (h *Handler) respondList(c *gin.Context, events []Event, err error) {
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) audit(c *gin.Context, userID uuid.UUID, eventID *uuid.UUID, action string, details map[string]interface{}, status string) {
	if h.AuditSvc == nil {
		return
	}
	ip := middleware.GetIPFromContext(c)
	if err := h.AuditSvc.LogAction(c.Request.Context(), &userID, eventID, action, details, ip, status); err != nil {
		slog.WarnContext(c.Request.Context(), "audit log failed", "action", action, "error", err)
	}
}
