package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"teamhub/internal/apperr"
	"teamhub/internal/middleware"
	"teamhub/internal/models"
	"teamhub/internal/services"
	"teamhub/internal/validation"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: msg, Data: data})
}

func invalid(c *gin.Context, fields ...apperr.FieldError) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: "Validation failed", Errors: fields})
}

// bind decodes the JSON body into req and runs its binding rules; on failure it answers 400.
func bind(c *gin.Context, tag string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Printf("%s[bind][err] %v", tag, err)
		invalid(c, validation.FieldErrors(req, err)...)
		return false
	}
	return true
}

// fail maps a service error onto the envelope. Unknown errors are logged and hidden
// behind fallback.
func fail(c *gin.Context, tag string, err error, fallback string) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Printf("%s[err] %v", tag, err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Message: fallback})
		return
	}
	status := http.StatusInternalServerError
	switch e.Kind {
	case apperr.KindValidation, apperr.KindConflict:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	}
	log.Printf("%s[deny] %d %v", tag, status, err)
	c.JSON(status, Response{Success: false, Message: e.Message, Errors: e.Fields})
}

// более устойчиво к типам (int / int64 / float64 / string)
func getInt64FromCtx(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func actorFrom(c *gin.Context) services.Actor {
	id, _ := getInt64FromCtx(c, middleware.CtxUserID)
	return services.Actor{ID: id, Role: c.GetString(middleware.CtxRole)}
}

// pathID parses a positive int64 path parameter; on failure it answers 400 and returns false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		invalid(c, apperr.FieldError{Field: name, Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func pageFrom(c *gin.Context, defLimit int) models.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.NewPageRequest(page, limit, defLimit)
}

// queryFilter returns nil for absent values and the "all" wildcard.
func queryFilter(c *gin.Context, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" || v == "all" {
		return nil
	}
	return &v
}

func queryID(c *gin.Context, key string) (*int64, bool) {
	v := queryFilter(c, key)
	if v == nil {
		return nil, true
	}
	id, err := strconv.ParseInt(*v, 10, 64)
	if err != nil || id <= 0 {
		invalid(c, apperr.FieldError{Field: key, Message: "invalid id"})
		return nil, false
	}
	return &id, true
}

// optionalDate converts a date already checked by the `date` binding rule.
func optionalDate(raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t, err := validation.ParseDate(*raw)
	if err != nil {
		return nil
	}
	return &t
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
