package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamhub/internal/models"
	"teamhub/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	Name       string `json:"name" binding:"notblank,min=2,max=50" msg:"Name must be between 2 and 50 characters"`
	Email      string `json:"email" binding:"required,email" msg:"Please enter a valid email"`
	Password   string `json:"password" binding:"min=6" msg:"Password must be at least 6 characters"`
	Department string `json:"department" binding:"max=50" msg:"Department cannot exceed 50 characters"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required" msg:"refreshToken is required"`
}

// @Summary      Регистрация
// @Description  Creates a member account and returns a token pair
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user  body      RegisterRequest  true  "Account"
// @Success      201   {object}  Response
// @Failure      400   {object}  Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, "[auth][register]", &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, tokens, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name: req.Name, Email: email, Password: req.Password, Department: req.Department,
	})
	if err != nil {
		fail(c, "[auth][register]", err, "Registration failed")
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", gin.H{"user": user, "tokens": tokens})
}

// @Summary      Вход в систему
// @Description  Аутентифицирует пользователя и возвращает токены доступа
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Данные для входа"
// @Success      200    {object}  Response
// @Failure      400    {object}  Response
// @Failure      401    {object}  Response
// @Failure      429    {object}  Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, "[auth][login]", &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	log.Printf("[auth][login] attempt email=%q", email)

	user, tokens, err := h.authService.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		fail(c, "[auth][login]", err, "Login failed")
		return
	}
	respond(c, http.StatusOK, "Login successful", gin.H{"user": user, "tokens": tokens})
}

// @Summary      Обновить токены
// @Description  Rotates the refresh token; the previous one stops working
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        refresh  body      RefreshRequest  true  "Refresh token"
// @Success      200      {object}  Response
// @Failure      401      {object}  Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bind(c, "[auth][refresh]", &req) {
		return
	}
	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, "[auth][refresh]", err, "Failed to refresh token")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"tokens": tokens})
}

// @Summary      Выход
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  Response
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	actor := actorFrom(c)
	if err := h.authService.Logout(c.Request.Context(), actor); err != nil {
		fail(c, "[auth][logout]", err, "Logout failed")
		return
	}
	log.Printf("[auth][logout] userID=%d", actor.ID)
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

// @Summary      Текущий пользователь
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		fail(c, "[auth][me]", err, "Failed to fetch user")
		return
	}
	respond(c, http.StatusOK, "", gin.H{"user": user})
}
