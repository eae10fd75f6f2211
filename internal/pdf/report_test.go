package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/models"
)

func TestProjectReportRenders(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ann := models.UserRef{ID: 1, Name: "Ann Lee", Email: "ann@example.com"}
	detail := &models.ProjectDetail{
		ProjectView: models.ProjectView{
			Project: models.Project{
				ID: 1, Name: "Launch", Codename: "Agile Falcon", Description: "Ship the café menu",
				Status: models.ProjectActive, Progress: 40, StartDate: start, Tags: []string{"q1"},
			},
			CreatedBy:   ann,
			Members:     []models.MemberView{{User: ann, Role: models.MemberRoleAdmin, JoinedAt: start}},
			MemberCount: 1,
		},
		Tasks: []models.TaskView{
			{Task: models.Task{Title: strings.Repeat("long title ", 10), Status: models.StatusTodo, Priority: models.PriorityHigh}, AssignedTo: &ann, IsOverdue: true},
			{Task: models.Task{Title: "Draft brief", Status: models.StatusCompleted, Priority: models.PriorityLow}, CompletionPercentage: 100},
		},
	}

	out, err := NewReportGenerator("").ProjectReport(detail, start.Add(48*time.Hour))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
