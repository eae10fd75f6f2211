package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"teamhub/internal/models"
	"teamhub/internal/pdf"
	"teamhub/internal/services"
	"teamhub/internal/validation"
)

type ProjectHandler struct {
	service services.ProjectService
	reports pdf.Generator
	now     func() time.Time
}

func NewProjectHandler(service services.ProjectService, reports pdf.Generator) *ProjectHandler {
	return &ProjectHandler{service: service, reports: reports, now: time.Now}
}

type ProjectCreateRequest struct {
	Name        string                  `json:"name" binding:"notblank,max=100" msg:"Project name is required and cannot exceed 100 characters"`
	Description string                  `json:"description" binding:"notblank,max=500" msg:"Description is required and cannot exceed 500 characters"`
	StartDate   string                  `json:"startDate" binding:"date" msg:"Valid start date is required"`
	EndDate     *string                 `json:"endDate" binding:"omitempty,date" msg:"Valid end date is required"`
	Color       string                  `json:"color" binding:"omitempty,color" msg:"Valid hex color is required"`
	Tags        []string                `json:"tags" binding:"dive,max=20" msg:"Tag cannot exceed 20 characters"`
	Settings    *models.ProjectSettings `json:"settings"`
}

func (r *ProjectCreateRequest) input() services.ProjectInput {
	// формат даты уже проверен тегом date
	start, _ := validation.ParseDate(r.StartDate)
	in := services.ProjectInput{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		StartDate:   start,
		EndDate:     optionalDate(r.EndDate),
		Color:       r.Color,
		Tags:        r.Tags,
	}
	if r.Settings != nil {
		in.Settings = *r.Settings
	}
	return in
}

type ProjectUpdateRequest struct {
	Name        *string                 `json:"name" binding:"omitempty,notblank,max=100" msg:"Project name cannot exceed 100 characters"`
	Description *string                 `json:"description" binding:"omitempty,max=500" msg:"Description cannot exceed 500 characters"`
	Status      *string                 `json:"status" binding:"omitempty,oneof=active completed on-hold cancelled" msg:"Invalid status"`
	Progress    *int                    `json:"progress" binding:"omitempty,gte=0,lte=100" msg:"Progress must be between 0 and 100"`
	EndDate     *string                 `json:"endDate" binding:"omitempty,date" msg:"Valid end date is required"`
	Color       *string                 `json:"color" binding:"omitempty,color" msg:"Valid hex color is required"`
	Tags        []string                `json:"tags" binding:"dive,max=20" msg:"Tag cannot exceed 20 characters"`
	Settings    *models.ProjectSettings `json:"settings"`
}

func (r *ProjectUpdateRequest) patch() services.ProjectPatch {
	p := services.ProjectPatch{
		Name:        trimmed(r.Name),
		Description: trimmed(r.Description),
		Progress:    r.Progress,
		EndDate:     optionalDate(r.EndDate),
		Color:       r.Color,
		Tags:        r.Tags,
		Settings:    r.Settings,
	}
	if r.Status != nil {
		st := models.ProjectStatus(*r.Status)
		p.Status = &st
	}
	return p
}

type MemberRequest struct {
	UserID int64  `json:"userId" binding:"gt=0" msg:"Valid user ID is required"`
	Role   string `json:"role" binding:"omitempty,oneof=admin member viewer" msg:"Invalid role"`
}

type MemberRoleRequest struct {
	Role string `json:"role" binding:"oneof=admin member viewer" msg:"Invalid role"`
}

// @Summary      Список проектов
// @Description  Projects the caller created or belongs to, newest first
// @Tags         Projects
// @Produce      json
// @Param        status  query     string  false  "active|completed|on-hold|cancelled|all"
// @Param        search  query     string  false  "Substring of name, description or codename"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  Response
// @Security     BearerAuth
// @Router       /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	actor := actorFrom(c)
	q := services.ProjectQuery{Search: c.Query("search"), PageRequest: pageFrom(c, models.DefaultPageLimit)}
	if s := queryFilter(c, "status"); s != nil {
		st := models.ProjectStatus(*s)
		q.Status = &st
	}
	projects, page, err := h.service.List(c.Request.Context(), actor, q)
	if err != nil {
		fail(c, "[project][list]", err, "Failed to fetch projects")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"projects": projects, "pagination": page})
}

// @Summary      Проект
// @Description  Project with populated members and tasks
// @Tags         Projects
// @Produce      json
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	project, err := h.service.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[project][get]", err, "Failed to fetch project")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"project": project})
}

// @Summary      Создать проект
// @Description  Creates a project; the caller becomes its first admin member
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        project  body      ProjectCreateRequest  true  "Project"
// @Success      201      {object}  Response
// @Failure      400      {object}  Response
// @Security     BearerAuth
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	actor := actorFrom(c)
	log.Printf("[project][create] call by userID=%d", actor.ID)

	var req ProjectCreateRequest
	if !bind(c, "[project][create]", &req) {
		return
	}
	project, err := h.service.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		fail(c, "[project][create]", err, "Failed to create project")
		return
	}
	log.Printf("[project][create][ok] id=%d codename=%q", project.ID, project.Codename)
	respond(c, http.StatusCreated, "Project created successfully", gin.H{"project": project})
}

// @Summary      Обновить проект
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id       path      int                   true  "Project ID"
// @Param        project  body      ProjectUpdateRequest  true  "Fields to change"
// @Success      200      {object}  Response
// @Failure      400      {object}  Response
// @Failure      403      {object}  Response
// @Failure      404      {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ProjectUpdateRequest
	if !bind(c, "[project][update]", &req) {
		return
	}
	project, err := h.service.Update(c.Request.Context(), actorFrom(c), id, req.patch())
	if err != nil {
		fail(c, "[project][update]", err, "Failed to update project")
		return
	}
	log.Printf("[project][update][ok] id=%d", id)
	respond(c, http.StatusOK, "Project updated successfully", gin.H{"project": project})
}

// @Summary      Удалить проект
// @Description  Creator only; cascades to tasks, comments, discussions and messages
// @Tags         Projects
// @Produce      json
// @Param        id   path      int  true  "Project ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor := actorFrom(c)
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, "[project][delete]", err, "Failed to delete project")
		return
	}
	log.Printf("[project][delete][ok] id=%d by userID=%d", id, actor.ID)
	respond(c, http.StatusOK, "Project deleted successfully", nil)
}

// @Summary      Добавить участника
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id      path      int            true  "Project ID"
// @Param        member  body      MemberRequest  true  "Member"
// @Success      200     {object}  Response
// @Failure      400     {object}  Response
// @Failure      403     {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if !bind(c, "[project][member][add]", &req) {
		return
	}
	project, err := h.service.AddMember(c.Request.Context(), actorFrom(c), id, req.UserID, models.MemberRole(req.Role))
	if err != nil {
		fail(c, "[project][member][add]", err, "Failed to add member")
		return
	}
	log.Printf("[project][member][add][ok] project=%d user=%d", id, req.UserID)
	respond(c, http.StatusOK, "Member added successfully", gin.H{"project": project})
}

// @Summary      Сменить роль участника
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id      path      int                true  "Project ID"
// @Param        userId  path      int                true  "User ID"
// @Param        role    body      MemberRoleRequest  true  "New role"
// @Success      200     {object}  Response
// @Failure      400     {object}  Response
// @Failure      403     {object}  Response
// @Failure      404     {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id}/members/{userId} [put]
func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req MemberRoleRequest
	if !bind(c, "[project][member][role]", &req) {
		return
	}
	project, err := h.service.UpdateMemberRole(c.Request.Context(), actorFrom(c), id, userID, models.MemberRole(req.Role))
	if err != nil {
		fail(c, "[project][member][role]", err, "Failed to update member role")
		return
	}
	respond(c, http.StatusOK, "Member role updated successfully", gin.H{"project": project})
}

// @Summary      Удалить участника
// @Tags         Projects
// @Produce      json
// @Param        id      path      int  true  "Project ID"
// @Param        userId  path      int  true  "User ID"
// @Success      200     {object}  Response
// @Failure      403     {object}  Response
// @Failure      404     {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	project, err := h.service.RemoveMember(c.Request.Context(), actorFrom(c), id, userID)
	if err != nil {
		fail(c, "[project][member][remove]", err, "Failed to remove member")
		return
	}
	log.Printf("[project][member][remove][ok] project=%d user=%d", id, userID)
	respond(c, http.StatusOK, "Member removed successfully", gin.H{"project": project})
}

// @Summary      PDF-отчёт по проекту
// @Tags         Projects
// @Produce      application/pdf
// @Param        id   path      int  true  "Project ID"
// @Success      200  {file}    file
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /projects/{id}/report [get]
func (h *ProjectHandler) Report(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	project, err := h.service.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[project][report]", err, "Failed to build report")
		return
	}
	body, err := h.reports.ProjectReport(project, h.now())
	if err != nil {
		fail(c, "[project][report]", err, "Failed to build report")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="project_%d_report.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", body)
}
