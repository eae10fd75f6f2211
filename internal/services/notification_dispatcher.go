package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

const DefaultNotificationTTL = 30 * 24 * time.Hour

// Channel pushes an already stored notification to an outside transport.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to *models.User, n *models.Notification) error
}

// Dispatcher turns domain events into stored notifications. Every trigger is best-effort:
// failures are logged and never reach the caller.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	channels      []Channel
	ttl           time.Duration
	now           Clock

	wg sync.WaitGroup
}

func NewDispatcher(notifications repositories.NotificationRepository, users repositories.UserRepository, ttl time.Duration, now Clock, channels ...Channel) *Dispatcher {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		channels:      channels,
		ttl:           ttl,
		now:           clockOrNow(now),
	}
}

// Create stamps and stores n, then hands it to the delivery channels in the background.
func (d *Dispatcher) Create(ctx context.Context, n *models.Notification) error {
	now := d.now()
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	n.ExpiresAt = now.Add(d.ttl)
	if err := d.notifications.Create(ctx, n); err != nil {
		return err
	}
	d.deliver(context.WithoutCancel(ctx), n)
	return nil
}

// Wait blocks until background deliveries have finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Drain is Wait bounded by ctx. It must run only after the HTTP server has stopped
// accepting requests, otherwise new deliveries can start behind it.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) {
	if len(d.channels) == 0 {
		return
	}
	cp := *n
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		u, err := d.users.GetByID(ctx, cp.UserID)
		if err != nil {
			log.Printf("[notify][deliver][err] user=%d: %v", cp.UserID, err)
			return
		}
		for _, ch := range d.channels {
			if err := ch.Deliver(ctx, u, &cp); err != nil {
				log.Printf("[notify][%s][err] notification=%d user=%d: %v", ch.Name(), cp.ID, cp.UserID, err)
			}
		}
	}()
}

func (d *Dispatcher) emit(ctx context.Context, n *models.Notification) {
	if err := d.Create(ctx, n); err != nil {
		log.Printf("[notify][%s][err] user=%d: %v", n.Type, n.UserID, err)
		return
	}
	log.Printf("[notify][%s][ok] user=%d id=%d", n.Type, n.UserID, n.ID)
}

func assignmentPriority(p models.Priority) models.Priority {
	if p == models.PriorityHigh || p == models.PriorityUrgent {
		return models.PriorityHigh
	}
	return models.PriorityMedium
}

func taskEntity(t *models.Task) (string, *models.RelatedEntity) {
	return fmt.Sprintf("/tasks/%d", t.ID), &models.RelatedEntity{Type: models.EntityTask, ID: t.ID}
}

// TaskAssigned notifies the assignee unless they assigned the task to themselves.
func (d *Dispatcher) TaskAssigned(ctx context.Context, t *models.Task, p *models.Project, actorID int64) {
	if t.AssignedTo == nil || *t.AssignedTo == actorID {
		return
	}
	url, rel := taskEntity(t)
	d.emit(ctx, &models.Notification{
		Type:          models.NotifTaskAssigned,
		Title:         "New Task Assigned",
		Message:       fmt.Sprintf("You have been assigned to task %q in project %q", t.Title, p.Name),
		UserID:        *t.AssignedTo,
		Priority:      assignmentPriority(t.Priority),
		ActionURL:     url,
		RelatedEntity: rel,
	})
}

// TaskCompleted notifies assignee, which is the task's assignee as it was before the
// completing update.
func (d *Dispatcher) TaskCompleted(ctx context.Context, t *models.Task, assignee *int64) {
	if assignee == nil {
		return
	}
	url, rel := taskEntity(t)
	d.emit(ctx, &models.Notification{
		Type:          models.NotifTaskCompleted,
		Title:         "Task Completed",
		Message:       fmt.Sprintf("Task %q has been completed", t.Title),
		UserID:        *assignee,
		Priority:      models.PriorityMedium,
		ActionURL:     url,
		RelatedEntity: rel,
	})
}

func (d *Dispatcher) MemberAdded(ctx context.Context, p *models.Project, userID int64) {
	d.emit(ctx, &models.Notification{
		Type:          models.NotifTeamInvite,
		Title:         "Project Invitation",
		Message:       fmt.Sprintf("You have been added to project %q", p.Name),
		UserID:        userID,
		Priority:      models.PriorityMedium,
		ActionURL:     fmt.Sprintf("/projects/%d", p.ID),
		RelatedEntity: &models.RelatedEntity{Type: models.EntityProject, ID: p.ID},
	})
}

func (d *Dispatcher) MemberRoleChanged(ctx context.Context, p *models.Project, userID int64, role models.MemberRole) {
	d.emit(ctx, &models.Notification{
		Type:          models.NotifTeamRoleChange,
		Title:         "Project Role Updated",
		Message:       fmt.Sprintf("Your role in project %q is now %s", p.Name, role),
		UserID:        userID,
		Priority:      models.PriorityMedium,
		ActionURL:     fmt.Sprintf("/projects/%d", p.ID),
		RelatedEntity: &models.RelatedEntity{Type: models.EntityProject, ID: p.ID},
		Metadata:      map[string]string{"role": string(role)},
	})
}

// Mentioned sends one notification per distinct mentioned user other than the author.
func (d *Dispatcher) Mentioned(ctx context.Context, disc *models.Discussion, author *models.User, mentions []int64) {
	for _, uid := range distinctExcept(mentions, author.ID) {
		d.emit(ctx, &models.Notification{
			Type:          models.NotifDiscussionMention,
			Title:         "Mentioned in Discussion",
			Message:       fmt.Sprintf("%s mentioned you in discussion %q", author.Name, disc.Title),
			UserID:        uid,
			Priority:      models.PriorityMedium,
			ActionURL:     fmt.Sprintf("/discussions/%d", disc.ID),
			RelatedEntity: &models.RelatedEntity{Type: models.EntityDiscussion, ID: disc.ID},
		})
	}
}

func (d *Dispatcher) DiscussionReply(ctx context.Context, disc *models.Discussion, author *models.User, parentAuthor int64) {
	if parentAuthor == author.ID {
		return
	}
	d.emit(ctx, &models.Notification{
		Type:          models.NotifDiscussionReply,
		Title:         "New Reply in Discussion",
		Message:       fmt.Sprintf("%s replied to your message in %q", author.Name, disc.Title),
		UserID:        parentAuthor,
		Priority:      models.PriorityLow,
		ActionURL:     fmt.Sprintf("/discussions/%d", disc.ID),
		RelatedEntity: &models.RelatedEntity{Type: models.EntityDiscussion, ID: disc.ID},
	})
}

func (d *Dispatcher) CommentReply(ctx context.Context, t *models.Task, author *models.User, parentAuthor int64) {
	if parentAuthor == author.ID {
		return
	}
	url, rel := taskEntity(t)
	d.emit(ctx, &models.Notification{
		Type:          models.NotifCommentReply,
		Title:         "New Reply to Comment",
		Message:       fmt.Sprintf("%s replied to your comment on task %q", author.Name, t.Title),
		UserID:        parentAuthor,
		Priority:      models.PriorityLow,
		ActionURL:     url,
		RelatedEntity: rel,
	})
}

func distinctExcept(ids []int64, skip int64) []int64 {
	seen := map[int64]struct{}{skip: {}}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
