package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/apperr"
)

type member struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role" validate:"oneof=admin member viewer" msg:"invalid role"`
}

type board struct {
	Title   string   `json:"title" validate:"notblank,max=10" msg:"title is required and cannot exceed 10 characters"`
	Color   string   `json:"color" validate:"color"`
	Phone   string   `json:"phone" validate:"phone" msg:"please enter a valid phone number"`
	Tags    []string `json:"tags" validate:"dive,max=3" msg:"tag cannot exceed 3 characters"`
	Members []member `json:"members" validate:"unique=UserID,dive" msg:"user appears more than once in members"`
}

func byField(fields []apperr.FieldError) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestCheckUsesMsgTagsAndJSONPaths(t *testing.T) {
	b := board{
		Title: "   ",
		Color: "#abc",
		Phone: "12-34",
		Tags:  []string{"ok", "toolong"},
		Members: []member{
			{UserID: 1, Role: "admin"},
			{UserID: 2, Role: "owner"},
		},
	}
	got := byField(Check(&b))

	assert.Equal(t, "title is required and cannot exceed 10 characters", got["title"])
	assert.Equal(t, "color is invalid", got["color"])
	assert.Equal(t, "please enter a valid phone number", got["phone"])
	assert.Equal(t, "tag cannot exceed 3 characters", got["tags"])
	assert.Equal(t, "invalid role", got["members.role"])
}

func TestCheckDuplicateMembers(t *testing.T) {
	b := board{Title: "ok", Color: "#AABBCC", Members: []member{{UserID: 1, Role: "admin"}, {UserID: 1, Role: "member"}}}
	got := byField(Check(&b))
	assert.Equal(t, map[string]string{"members": "user appears more than once in members"}, got)
}

func TestStructValid(t *testing.T) {
	b := board{Title: "ok", Color: "#AABBCC", Phone: "", Tags: []string{"a"}}
	assert.NoError(t, Struct(&b))

	b.Phone = "+77011234567"
	assert.NoError(t, Struct(&b))

	b.Title = strings.Repeat("я", 11)
	err := Struct(&b)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

type createReq struct {
	Title    string  `json:"title" binding:"notblank,max=200" msg:"Task title is required and cannot exceed 200 characters"`
	Priority string  `json:"priority" binding:"omitempty,oneof=low medium high urgent" msg:"Invalid priority"`
	DueDate  *string `json:"dueDate" binding:"omitempty,date" msg:"Valid due date is required"`
	Hours    *int    `json:"hours" binding:"omitempty,gte=0"`
}

func TestGinBindingErrors(t *testing.T) {
	RegisterGin()
	RegisterGin()

	var req createReq
	raw := `{"title":"","priority":"whenever","dueDate":"tomorrow","hours":-1}`
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)

	got := byField(FieldErrors(&req, err))
	assert.Equal(t, "Task title is required and cannot exceed 200 characters", got["title"])
	assert.Equal(t, "Invalid priority", got["priority"])
	assert.Equal(t, "Valid due date is required", got["dueDate"])
	assert.Equal(t, "hours cannot be less than 0", got["hours"])

	ok := createReq{Title: "Ship", DueDate: func() *string { s := "2025-03-01"; return &s }()}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))
}

func TestFieldErrorsOnMalformedBody(t *testing.T) {
	var req createReq
	err := json.Unmarshal([]byte(`{"title": 5}`), &req)
	require.Error(t, err)
	assert.Equal(t, []apperr.FieldError{{Field: "body", Message: "invalid JSON body"}}, FieldErrors(&req, err))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	_, err = ParseDate("2025-03-01T10:00:00Z")
	assert.NoError(t, err)

	_, err = ParseDate("01.03.2025")
	assert.Error(t, err)
}
