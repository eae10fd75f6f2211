package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
	"teamhub/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type TaskCreateRequest struct {
	Title          string   `json:"title" binding:"notblank,max=200" msg:"Task title is required and cannot exceed 200 characters"`
	Description    string   `json:"description" binding:"max=1000" msg:"Description cannot exceed 1000 characters"`
	ProjectID      int64    `json:"projectId" binding:"gt=0" msg:"Valid project ID is required"`
	AssignedTo     *int64   `json:"assignedTo"`
	Priority       string   `json:"priority" binding:"omitempty,oneof=low medium high urgent" msg:"Invalid priority"`
	DueDate        *string  `json:"dueDate" binding:"omitempty,date" msg:"Valid due date is required"`
	Tags           []string `json:"tags" binding:"dive,max=20" msg:"Tag cannot exceed 20 characters"`
	EstimatedHours *float64 `json:"estimatedHours" binding:"omitempty,gte=0" msg:"Estimated hours cannot be negative"`
}

func (r *TaskCreateRequest) input() services.TaskInput {
	return services.TaskInput{
		Title:          strings.TrimSpace(r.Title),
		Description:    strings.TrimSpace(r.Description),
		ProjectID:      r.ProjectID,
		AssignedTo:     r.AssignedTo,
		Priority:       models.Priority(r.Priority),
		DueDate:        optionalDate(r.DueDate),
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
	}
}

type TaskUpdateRequest struct {
	Title          *string  `json:"title" binding:"omitempty,notblank,max=200" msg:"Task title cannot exceed 200 characters"`
	Description    *string  `json:"description" binding:"omitempty,max=1000" msg:"Description cannot exceed 1000 characters"`
	Status         *string  `json:"status" binding:"omitempty,oneof=todo in-progress review completed" msg:"Invalid status"`
	Priority       *string  `json:"priority" binding:"omitempty,oneof=low medium high urgent" msg:"Invalid priority"`
	AssignedTo     *int64   `json:"assignedTo"`
	DueDate        *string  `json:"dueDate" binding:"omitempty,date" msg:"Valid due date is required"`
	Tags           []string `json:"tags" binding:"dive,max=20" msg:"Tag cannot exceed 20 characters"`
	EstimatedHours *float64 `json:"estimatedHours" binding:"omitempty,gte=0" msg:"Estimated hours cannot be negative"`
	ActualHours    *float64 `json:"actualHours" binding:"omitempty,gte=0" msg:"Actual hours cannot be negative"`
}

func (r *TaskUpdateRequest) patch() services.TaskPatch {
	p := services.TaskPatch{
		Title:          trimmed(r.Title),
		Description:    trimmed(r.Description),
		AssignedTo:     r.AssignedTo,
		DueDate:        optionalDate(r.DueDate),
		Tags:           r.Tags,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
	}
	if r.Status != nil {
		st := models.TaskStatus(*r.Status)
		p.Status = &st
	}
	if r.Priority != nil {
		pr := models.Priority(*r.Priority)
		p.Priority = &pr
	}
	return p
}

type CommentRequest struct {
	Content  string `json:"content" binding:"notblank,max=1000" msg:"Comment content is required and cannot exceed 1000 characters"`
	ParentID *int64 `json:"parentId"`
}

type SubtaskRequest struct {
	Title string `json:"title" binding:"notblank,max=200" msg:"Subtask title is required and cannot exceed 200 characters"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"notblank" msg:"Emoji is required"`
}

// @Summary      Список задач
// @Description  Tasks in projects visible to the caller, newest first
// @Tags         Tasks
// @Produce      json
// @Param        projectId   query     int     false  "Project ID"
// @Param        status      query     string  false  "todo|in-progress|review|completed|all"
// @Param        assignedTo  query     int     false  "Assignee user ID"
// @Param        priority    query     string  false  "low|medium|high|urgent|all"
// @Param        page        query     int     false  "Page (1-based)"
// @Param        limit       query     int     false  "Page size"
// @Success      200         {object}  Response
// @Failure      403         {object}  Response
// @Security     BearerAuth
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	actor := actorFrom(c)
	q := services.TaskQuery{PageRequest: pageFrom(c, models.DefaultPageLimit)}
	var ok bool
	if q.ProjectID, ok = queryID(c, "projectId"); !ok {
		return
	}
	if q.AssignedTo, ok = queryID(c, "assignedTo"); !ok {
		return
	}
	if s := queryFilter(c, "status"); s != nil {
		st := models.TaskStatus(*s)
		q.Status = &st
	}
	if s := queryFilter(c, "priority"); s != nil {
		pr := models.Priority(*s)
		q.Priority = &pr
	}

	tasks, page, err := h.service.List(c.Request.Context(), actor, q)
	if err != nil {
		fail(c, "[task][list]", err, "Failed to fetch tasks")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"tasks": tasks, "pagination": page})
}

// @Summary      Задача
// @Description  Task with its comments, oldest first
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, comments, err := h.service.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, "[task][get]", err, "Failed to fetch task")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"task": task, "comments": comments})
}

// @Summary      Создать задачу
// @Description  Notifies the assignee unless they created the task themselves
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      TaskCreateRequest  true  "Task"
// @Success      201   {object}  Response
// @Failure      400   {object}  Response
// @Failure      403   {object}  Response
// @Security     BearerAuth
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor := actorFrom(c)
	log.Printf("[task][create] call by userID=%d role=%s", actor.ID, actor.Role)

	var req TaskCreateRequest
	if !bind(c, "[task][create]", &req) {
		return
	}
	task, err := h.service.Create(c.Request.Context(), actor, req.input())
	if err != nil {
		fail(c, "[task][create]", err, "Failed to create task")
		return
	}
	log.Printf("[task][create][ok] id=%d project=%d title=%q", task.ID, task.ProjectID, task.Title)
	respond(c, http.StatusCreated, "Task created successfully", gin.H{"task": task})
}

// @Summary      Обновить задачу
// @Description  Completing a task notifies its assignee; reassignment notifies the new assignee
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "Task ID"
// @Param        task  body      TaskUpdateRequest  true  "Fields to change"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      403   {object}  Response
// @Failure      404   {object}  Response
// @Security     BearerAuth
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req TaskUpdateRequest
	if !bind(c, "[task][update]", &req) {
		return
	}
	task, err := h.service.Update(c.Request.Context(), actorFrom(c), id, req.patch())
	if err != nil {
		fail(c, "[task][update]", err, "Failed to update task")
		return
	}
	log.Printf("[task][update][ok] id=%d status=%s", id, task.Status)
	respond(c, http.StatusOK, "Task updated successfully", gin.H{"task": task})
}

// @Summary      Удалить задачу
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		fail(c, "[task][delete]", err, "Failed to delete task")
		return
	}
	log.Printf("[task][delete][ok] id=%d", id)
	respond(c, http.StatusOK, "Task deleted successfully", nil)
}

// @Summary      Комментарий к задаче
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id       path      int             true  "Task ID"
// @Param        comment  body      CommentRequest  true  "Comment"
// @Success      201      {object}  Response
// @Failure      400      {object}  Response
// @Failure      403      {object}  Response
// @Failure      404      {object}  Response
// @Security     BearerAuth
// @Router       /tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !bind(c, "[task][comment]", &req) {
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), actorFrom(c), id, services.CommentInput{
		Content:  strings.TrimSpace(req.Content),
		ParentID: req.ParentID,
	})
	if err != nil {
		fail(c, "[task][comment]", err, "Failed to add comment")
		return
	}
	respond(c, http.StatusCreated, "Comment added successfully", gin.H{"comment": comment})
}

// @Summary      Добавить подзадачу
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id       path      int             true  "Task ID"
// @Param        subtask  body      SubtaskRequest  true  "Subtask"
// @Success      201      {object}  Response
// @Failure      400      {object}  Response
// @Security     BearerAuth
// @Router       /tasks/{id}/subtasks [post]
func (h *TaskHandler) AddSubtask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SubtaskRequest
	if !bind(c, "[task][subtask][add]", &req) {
		return
	}
	task, err := h.service.AddSubtask(c.Request.Context(), actorFrom(c), id, strings.TrimSpace(req.Title))
	if err != nil {
		fail(c, "[task][subtask][add]", err, "Failed to add subtask")
		return
	}
	respond(c, http.StatusCreated, "Subtask added successfully", gin.H{"task": task})
}

// @Summary      Переключить подзадачу
// @Tags         Tasks
// @Produce      json
// @Param        id     path      int  true  "Task ID"
// @Param        index  path      int  true  "Subtask index"
// @Success      200    {object}  Response
// @Failure      400    {object}  Response
// @Security     BearerAuth
// @Router       /tasks/{id}/subtasks/{index}/toggle [put]
func (h *TaskHandler) ToggleSubtask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		invalid(c, apperr.FieldError{Field: "index", Message: "Invalid subtask index"})
		return
	}
	task, err := h.service.ToggleSubtask(c.Request.Context(), actorFrom(c), id, index)
	if err != nil {
		fail(c, "[task][subtask][toggle]", err, "Failed to update subtask")
		return
	}
	respond(c, http.StatusOK, "Subtask updated successfully", gin.H{"task": task})
}

// @Summary      Реакция на комментарий
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id        path      int              true  "Comment ID"
// @Param        reaction  body      ReactionRequest  true  "Emoji"
// @Success      200       {object}  Response
// @Failure      400       {object}  Response
// @Security     BearerAuth
// @Router       /comments/{id}/reactions [post]
func (h *TaskHandler) React(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReactionRequest
	if !bind(c, "[comment][react]", &req) {
		return
	}
	comment, err := h.service.React(c.Request.Context(), actorFrom(c), id, req.Emoji)
	if err != nil {
		fail(c, "[comment][react]", err, "Failed to add reaction")
		return
	}
	respond(c, http.StatusOK, "Reaction added", gin.H{"comment": comment})
}

// @Summary      Убрать реакцию
// @Tags         Tasks
// @Produce      json
// @Param        id     path      int     true  "Comment ID"
// @Param        emoji  path      string  true  "Emoji"
// @Success      200    {object}  Response
// @Security     BearerAuth
// @Router       /comments/{id}/reactions/{emoji} [delete]
func (h *TaskHandler) Unreact(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	comment, err := h.service.Unreact(c.Request.Context(), actorFrom(c), id, c.Param("emoji"))
	if err != nil {
		fail(c, "[comment][unreact]", err, "Failed to remove reaction")
		return
	}
	respond(c, http.StatusOK, "Reaction removed", gin.H{"comment": comment})
}
