package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamhub/internal/models"
	"teamhub/internal/services"
)

type DiscussionHandler struct {
	service services.DiscussionService
}

func NewDiscussionHandler(service services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{service: service}
}

type DiscussionCreateRequest struct {
	Title     string   `json:"title" binding:"notblank,max=200" msg:"Discussion title is required and cannot exceed 200 characters"`
	ProjectID int64    `json:"projectId" binding:"gt=0" msg:"Valid project ID is required"`
	Tags      []string `json:"tags" binding:"dive,max=20" msg:"Tag cannot exceed 20 characters"`
	// первое сообщение треда, необязательно
	Content string `json:"content" binding:"max=2000" msg:"Message content cannot exceed 2000 characters"`
}

type MessageRequest struct {
	Content  string  `json:"content" binding:"notblank,max=2000" msg:"Message content is required and cannot exceed 2000 characters"`
	ParentID *int64  `json:"parentId"`
	Mentions []int64 `json:"mentions"`
}

// @Summary      Список обсуждений
// @Description  Pinned first, then most recently active
// @Tags         Discussions
// @Produce      json
// @Param        projectId  query     int     false  "Project ID"
// @Param        search     query     string  false  "Title substring"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  Response
// @Failure      403        {object}  Response
// @Security     BearerAuth
// @Router       /discussions [get]
func (h *DiscussionHandler) List(c *gin.Context) {
	q := services.DiscussionQuery{
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: pageFrom(c, models.DefaultPageLimit),
	}
	var ok bool
	if q.ProjectID, ok = queryID(c, "projectId"); !ok {
		return
	}
	list, page, err := h.service.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		fail(c, "[discussion][list]", err, "Failed to fetch discussions")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"discussions": list, "pagination": page})
}

// @Summary      Обсуждение
// @Description  Discussion with its messages, oldest first. The caller joins the participants.
// @Tags         Discussions
// @Produce      json
// @Param        id   path      int  true  "Discussion ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /discussions/{id} [get]
func (h *DiscussionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, messages, err := h.service.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[discussion][get]", err, "Failed to fetch discussion")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"discussion": d, "messages": messages})
}

// @Summary      Создать обсуждение
// @Tags         Discussions
// @Accept       json
// @Produce      json
// @Param        discussion  body      DiscussionCreateRequest  true  "Discussion"
// @Success      201         {object}  Response
// @Failure      400         {object}  Response
// @Failure      403         {object}  Response
// @Security     BearerAuth
// @Router       /discussions [post]
func (h *DiscussionHandler) Create(c *gin.Context) {
	actor := actorFrom(c)
	var req DiscussionCreateRequest
	if !bind(c, "[discussion][create]", &req) {
		return
	}

	ctx := c.Request.Context()
	d, err := h.service.Create(ctx, actor, services.DiscussionInput{
		Title:     strings.TrimSpace(req.Title),
		ProjectID: req.ProjectID,
		Tags:      req.Tags,
	})
	if err != nil {
		fail(c, "[discussion][create]", err, "Failed to create discussion")
		return
	}
	if content := strings.TrimSpace(req.Content); content != "" {
		if _, err := h.service.PostMessage(ctx, actor, d.ID, services.MessageInput{Content: content}); err != nil {
			fail(c, "[discussion][create][first]", err, "Failed to create discussion")
			return
		}
		if d, _, err = h.service.Get(ctx, actor, d.ID); err != nil {
			fail(c, "[discussion][create]", err, "Failed to create discussion")
			return
		}
	}
	log.Printf("[discussion][create][ok] id=%d project=%d", d.ID, d.ProjectID)
	respond(c, http.StatusCreated, "Discussion created successfully", gin.H{"discussion": d})
}

// @Summary      Написать сообщение
// @Description  Locked discussions reject new messages. Mentions and replies notify their targets.
// @Tags         Discussions
// @Accept       json
// @Produce      json
// @Param        id       path      int             true  "Discussion ID"
// @Param        message  body      MessageRequest  true  "Message"
// @Success      201      {object}  Response
// @Failure      400      {object}  Response
// @Failure      403      {object}  Response
// @Failure      404      {object}  Response
// @Security     BearerAuth
// @Router       /discussions/{id}/messages [post]
func (h *DiscussionHandler) PostMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req MessageRequest
	if !bind(c, "[discussion][message]", &req) {
		return
	}
	msg, err := h.service.PostMessage(c.Request.Context(), actorFrom(c), id, services.MessageInput{
		Content:  strings.TrimSpace(req.Content),
		ParentID: req.ParentID,
		Mentions: req.Mentions,
	})
	if err != nil {
		fail(c, "[discussion][message]", err, "Failed to send message")
		return
	}
	respond(c, http.StatusCreated, "Message sent successfully", gin.H{"message": msg})
}

// @Summary      Закрепить / открепить
// @Description  Project admins only
// @Tags         Discussions
// @Produce      json
// @Param        id   path      int  true  "Discussion ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /discussions/{id}/pin [put]
func (h *DiscussionHandler) TogglePin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.service.TogglePin(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[discussion][pin]", err, "Failed to update discussion")
		return
	}
	msg := "Discussion unpinned successfully"
	if d.IsPinned {
		msg = "Discussion pinned successfully"
	}
	respond(c, http.StatusOK, msg, gin.H{"discussion": d})
}

// @Summary      Закрыть / открыть
// @Description  Project admins only
// @Tags         Discussions
// @Produce      json
// @Param        id   path      int  true  "Discussion ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Security     BearerAuth
// @Router       /discussions/{id}/lock [put]
func (h *DiscussionHandler) ToggleLock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.service.ToggleLock(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[discussion][lock]", err, "Failed to update discussion")
		return
	}
	msg := "Discussion unlocked successfully"
	if d.IsLocked {
		msg = "Discussion locked successfully"
	}
	respond(c, http.StatusOK, msg, gin.H{"discussion": d})
}
