package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamhub/internal/models"
	"teamhub/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type UserUpdateRequest struct {
	Name           *string `json:"name" binding:"omitempty,notblank,min=2,max=50" msg:"Name must be between 2 and 50 characters"`
	Department     *string `json:"department" binding:"omitempty,max=50" msg:"Department cannot exceed 50 characters"`
	Location       *string `json:"location" binding:"omitempty,max=100" msg:"Location cannot exceed 100 characters"`
	Phone          *string `json:"phone" binding:"omitempty,phone" msg:"Please enter a valid phone number"`
	Avatar         *string `json:"avatar"`
	Role           *string `json:"role" binding:"omitempty,oneof=admin member viewer" msg:"Invalid role"`
	Status         *string `json:"status" binding:"omitempty,oneof=active away offline" msg:"Invalid status"`
	TelegramChatID *int64  `json:"telegramChatId"`
	NotifyTelegram *bool   `json:"notifyTelegram"`
	NotifyEmail    *bool   `json:"notifyEmail"`
}

func (r *UserUpdateRequest) patch() services.UserPatch {
	p := services.UserPatch{
		Name:           trimmed(r.Name),
		Department:     trimmed(r.Department),
		Location:       trimmed(r.Location),
		Phone:          trimmed(r.Phone),
		Avatar:         r.Avatar,
		TelegramChatID: r.TelegramChatID,
		NotifyTelegram: r.NotifyTelegram,
		NotifyEmail:    r.NotifyEmail,
	}
	if r.Role != nil {
		role := models.UserRole(*r.Role)
		p.Role = &role
	}
	if r.Status != nil {
		st := models.UserStatus(*r.Status)
		p.Status = &st
	}
	return p
}

type UserStatusRequest struct {
	Status string `json:"status" binding:"oneof=active away offline" msg:"Invalid status"`
}

// @Summary      Список пользователей
// @Description  Site admins only
// @Tags         Users
// @Produce      json
// @Param        search  query     string  false  "Name, email or department substring"
// @Param        role    query     string  false  "admin|member|viewer|all"
// @Param        status  query     string  false  "active|away|offline|all"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  Response
// @Failure      403     {object}  Response
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	q := services.UserQuery{
		Search:      strings.TrimSpace(c.Query("search")),
		PageRequest: pageFrom(c, models.DefaultPageLimit),
	}
	if s := queryFilter(c, "role"); s != nil {
		r := models.UserRole(*s)
		q.Role = &r
	}
	if s := queryFilter(c, "status"); s != nil {
		st := models.UserStatus(*s)
		q.Status = &st
	}
	users, page, err := h.service.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		fail(c, "[user][list]", err, "Failed to fetch users")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"users": users, "pagination": page})
}

// @Summary      Профиль пользователя
// @Description  Self or site admin; includes the user's projects
// @Tags         Users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, projects, err := h.service.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[user][get]", err, "Failed to fetch user")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"user": user, "projects": projects})
}

// @Summary      Обновить профиль
// @Description  Role and status of other users can only be changed by a site admin
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "User ID"
// @Param        user  body      UserUpdateRequest  true  "Fields to change"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      403   {object}  Response
// @Failure      404   {object}  Response
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UserUpdateRequest
	if !bind(c, "[user][update]", &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), actorFrom(c), id, req.patch())
	if err != nil {
		fail(c, "[user][update]", err, "Failed to update user")
		return
	}
	respond(c, http.StatusOK, "User updated successfully", gin.H{"user": user})
}

// @Summary      Обновить свой статус
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id      path      int                true  "User ID"
// @Param        status  body      UserStatusRequest  true  "Status"
// @Success      200     {object}  Response
// @Failure      400     {object}  Response
// @Failure      403     {object}  Response
// @Security     BearerAuth
// @Router       /users/{id}/status [put]
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UserStatusRequest
	if !bind(c, "[user][status]", &req) {
		return
	}
	user, err := h.service.UpdateStatus(c.Request.Context(), actorFrom(c), id, models.UserStatus(req.Status))
	if err != nil {
		fail(c, "[user][status]", err, "Failed to update status")
		return
	}
	respond(c, http.StatusOK, "Status updated successfully", gin.H{"user": user})
}

// @Summary      Удалить пользователя
// @Description  Site admins only; the user's projects pass to the deleting admin
// @Tags         Users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor := actorFrom(c)
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, "[user][delete]", err, "Failed to delete user")
		return
	}
	log.Printf("[user][delete][ok] id=%d by=%d", id, actor.ID)
	respond(c, http.StatusOK, "User deleted successfully", nil)
}
