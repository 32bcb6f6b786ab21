package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kpi-service/internal/services"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Param unread_only query bool false "Only unread"
// @Success 200 {object} Response
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	limit, offset := pagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	items, total, err := h.notifications.ListNotifications(c.Request.Context(), actor, unreadOnly, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", PagedData{Items: items, Total: total})
}

// CountUnread godoc
// @Summary Count the caller's unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/notifications/unread-count [get]
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"count": count})
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Notification marked as read")
}

// MarkAllRead godoc
// @Summary Mark all the caller's notifications as read
// @Tags notifications
// @Produce json
// @Success 200 {object} Response
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	count, err := h.notifications.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Notifications marked as read", gin.H{"count": count})
}
