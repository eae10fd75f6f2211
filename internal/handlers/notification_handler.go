package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
	"teamhub/internal/services"
)

type NotificationHandler struct {
	service services.NotificationService
}

func NewNotificationHandler(service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type TestNotificationRequest struct {
	Type     string `json:"type" binding:"required" msg:"Notification type is required"`
	Title    string `json:"title" binding:"notblank,max=200" msg:"Title is required and cannot exceed 200 characters"`
	Message  string `json:"message" binding:"notblank,max=500" msg:"Message is required and cannot exceed 500 characters"`
	Priority string `json:"priority" binding:"omitempty,oneof=low medium high urgent" msg:"Invalid priority"`
}

// @Summary      Мои уведомления
// @Description  Unexpired notifications of the caller, newest first, with the unread count
// @Tags         Notifications
// @Produce      json
// @Param        type      query     string  false  "Notification type or all"
// @Param        isRead    query     string  false  "true|false|all"
// @Param        priority  query     string  false  "low|medium|high|urgent|all"
// @Param        page      query     int     false  "Page (1-based)"
// @Param        limit     query     int     false  "Page size"
// @Success      200       {object}  Response
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	q := services.NotificationQuery{PageRequest: pageFrom(c, services.DefaultNotificationPageLimit)}
	if s := queryFilter(c, "type"); s != nil {
		t := models.NotificationType(*s)
		q.Type = &t
	}
	if s := queryFilter(c, "priority"); s != nil {
		p := models.Priority(*s)
		q.Priority = &p
	}
	if s := queryFilter(c, "isRead"); s != nil {
		switch strings.ToLower(*s) {
		case "true":
			v := true
			q.IsRead = &v
		case "false":
			v := false
			q.IsRead = &v
		default:
			invalid(c, apperr.FieldError{Field: "isRead", Message: "isRead must be true, false or all"})
			return
		}
	}

	page, err := h.service.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		fail(c, "[notification][list]", err, "Failed to fetch notifications")
		return
	}
	respond(c, http.StatusOK, "", page)
}

// @Summary      Количество непрочитанных
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  Response
// @Security     BearerAuth
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, "[notification][unread]", err, "Failed to fetch unread count")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"unreadCount": n})
}

// @Summary      Отметить прочитанным
// @Tags         Notifications
// @Produce      json
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[notification][read]", err, "Failed to update notification")
		return
	}
	respond(c, http.StatusOK, "Notification marked as read", gin.H{"notification": n})
}

// @Summary      Отметить непрочитанным
// @Tags         Notifications
// @Produce      json
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /notifications/{id}/unread [put]
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkUnread(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[notification][unread]", err, "Failed to update notification")
		return
	}
	respond(c, http.StatusOK, "Notification marked as unread", gin.H{"notification": n})
}

// @Summary      Прочитать все
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  Response
// @Security     BearerAuth
// @Router       /notifications/mark-all-read [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, "[notification][read-all]", err, "Failed to update notifications")
		return
	}
	respond(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": n})
}

// @Summary      Удалить уведомление
// @Tags         Notifications
// @Produce      json
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, "[notification][delete]", err, "Failed to delete notification")
		return
	}
	respond(c, http.StatusOK, "Notification deleted successfully", nil)
}

// @Summary      Очистить все
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  Response
// @Security     BearerAuth
// @Router       /notifications/clear-all [delete]
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	n, err := h.service.ClearAll(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, "[notification][clear]", err, "Failed to clear notifications")
		return
	}
	respond(c, http.StatusOK, "All notifications cleared", gin.H{"deleted": n})
}

// @Summary      Тестовое уведомление
// @Description  Development mode only; production answers 403
// @Tags         Notifications
// @Accept       json
// @Produce      json
// @Param        notification  body      TestNotificationRequest  true  "Notification"
// @Success      201           {object}  Response
// @Failure      400           {object}  Response
// @Failure      403           {object}  Response
// @Security     BearerAuth
// @Router       /notifications/test [post]
func (h *NotificationHandler) CreateTest(c *gin.Context) {
	var req TestNotificationRequest
	if !bind(c, "[notification][test]", &req) {
		return
	}
	n, err := h.service.CreateTest(c.Request.Context(), actorFrom(c), services.TestNotificationInput{
		Type:     models.NotificationType(req.Type),
		Title:    strings.TrimSpace(req.Title),
		Message:  strings.TrimSpace(req.Message),
		Priority: models.Priority(req.Priority),
	})
	if err != nil {
		fail(c, "[notification][test]", err, "Failed to create test notification")
		return
	}
	respond(c, http.StatusCreated, "Test notification created", gin.H{"notification": n})
}
