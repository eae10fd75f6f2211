package models

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
	UserRoleViewer UserRole = "viewer"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusAway    UserStatus = "away"
	UserStatusOffline UserStatus = "offline"
)

type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name" validate:"min=2,max=50" msg:"name must be between 2 and 50 characters"`
	Email        string     `json:"email" validate:"contains=@" msg:"valid email is required"`
	PasswordHash string     `json:"-"` // не отдаём наружу
	Role         UserRole   `json:"role" validate:"oneof=admin member viewer" msg:"invalid role"`
	Status       UserStatus `json:"status" validate:"oneof=active away offline" msg:"invalid status"`
	Department   string     `json:"department,omitempty" validate:"max=50" msg:"department cannot exceed 50 characters"`
	Location     string     `json:"location,omitempty" validate:"max=100" msg:"location cannot exceed 100 characters"`
	Phone        string     `json:"phone,omitempty" validate:"phone" msg:"please enter a valid phone number"`
	Avatar       string     `json:"avatar,omitempty"`
	LastActive   *time.Time `json:"lastActive,omitempty"`

	// каналы доставки уведомлений
	TelegramChatID int64 `json:"telegramChatId,omitempty"`
	NotifyTelegram bool  `json:"notifyTelegram"`
	NotifyEmail    bool  `json:"notifyEmail"`

	// refresh-хранение в БД
	RefreshToken     *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
	RefreshRevoked   bool       `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRef is the embedded projection used wherever another entity references a user.
type UserRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

type UserFilter struct {
	Search string
	Role   *UserRole
	Status *UserStatus
	PageRequest
}

type TeamStats struct {
	TotalMembers  int `json:"totalMembers"`
	ActiveMembers int `json:"activeMembers"`
	AdminCount    int `json:"adminCount"`
	TotalProjects int `json:"totalProjects"`
	Departments   int `json:"departments"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" msg:"Email and password are required"`
	Password string `json:"password" binding:"required" msg:"Email and password are required"`
}

func IsValidUserStatus(s UserStatus) bool {
	switch s {
	case UserStatusActive, UserStatusAway, UserStatusOffline:
		return true
	}
	return false
}
