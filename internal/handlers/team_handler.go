package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamhub/internal/models"
	"teamhub/internal/services"
)

type TeamHandler struct {
	service services.TeamService
}

func NewTeamHandler(service services.TeamService) *TeamHandler {
	return &TeamHandler{service: service}
}

// @Summary      Команда
// @Description  Every user with aggregate team statistics
// @Tags         Teams
// @Produce      json
// @Param        search  query     string  false  "Name, email or department substring"
// @Param        role    query     string  false  "admin|member|viewer|all"
// @Param        status  query     string  false  "active|away|offline|all"
// @Success      200     {object}  Response
// @Security     BearerAuth
// @Router       /teams [get]
func (h *TeamHandler) Overview(c *gin.Context) {
	q := services.TeamQuery{Search: strings.TrimSpace(c.Query("search"))}
	if s := queryFilter(c, "role"); s != nil {
		r := models.UserRole(*s)
		q.Role = &r
	}
	if s := queryFilter(c, "status"); s != nil {
		st := models.UserStatus(*s)
		q.Status = &st
	}
	out, err := h.service.Overview(c.Request.Context(), q)
	if err != nil {
		fail(c, "[team][overview]", err, "Failed to fetch team data")
		return
	}
	respond(c, http.StatusOK, "", out)
}
