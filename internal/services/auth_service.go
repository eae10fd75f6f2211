package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"teamhub/internal/apperr"
	"teamhub/internal/models"
	"teamhub/internal/repositories"
)

// TokenIssuer signs short-lived access tokens.
type TokenIssuer interface {
	Issue(userID int64, role string) (token string, expiresAt time.Time, err error)
}

type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Department string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, *Tokens, error)
	Login(ctx context.Context, email, password string) (*models.User, *Tokens, error)
	// Refresh rotates the refresh token; the old one stops working.
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context, actor Actor) error
	Me(ctx context.Context, actor Actor) (*models.User, error)
}

type authService struct {
	users      repositories.UserRepository
	issuer     TokenIssuer
	refreshTTL time.Duration
	now        Clock
}

func NewAuthService(users repositories.UserRepository, issuer TokenIssuer, refreshTTL time.Duration, now Clock) AuthService {
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &authService{users: users, issuer: issuer, refreshTTL: refreshTTL, now: clockOrNow(now)}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, *Tokens, error) {
	if len(in.Password) < 6 {
		return nil, nil, apperr.Validation(apperr.FieldError{Field: "password", Message: "password must be at least 6 characters"})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.UserRoleMember,
		Status:       models.UserStatusActive,
		Department:   strings.TrimSpace(in.Department),
		LastActive:   &now,
		NotifyEmail:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, nil, apperr.Conflict("User with this email already exists")
		}
		return nil, nil, err
	}
	log.Printf("[auth][register] created userID=%d", u.ID)
	tokens, err := s.issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *Tokens, error) {
	invalid := apperr.Unauthorized("Invalid email or password")

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Printf("[auth][login] user not found by email=%q", email)
		return nil, nil, invalid
	}
	if err != nil {
		return nil, nil, err
	}
	ph := strings.TrimSpace(u.PasswordHash)
	if ph == "" {
		log.Printf("[auth][login] empty password_hash for userID=%d", u.ID)
		return nil, nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ph), []byte(password)); err != nil {
		log.Printf("[auth][login] bcrypt mismatch for userID=%d", u.ID)
		return nil, nil, invalid
	}

	now := s.now()
	if err := s.users.UpdateStatus(ctx, u.ID, models.UserStatusActive, now); err != nil {
		log.Printf("[auth][login][warn] status update failed for userID=%d: %v", u.ID, err)
	} else {
		u.Status = models.UserStatusActive
		u.LastActive = &now
	}
	tokens, err := s.issue(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[auth][login] success userID=%d role=%s", u.ID, u.Role)
	return u, tokens, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	old := strings.TrimSpace(refreshToken)
	u, err := s.users.GetByRefreshToken(ctx, old)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	if u.RefreshRevoked || u.RefreshExpiresAt == nil {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}
	if s.now().After(*u.RefreshExpiresAt) {
		return nil, apperr.Unauthorized("Refresh token expired")
	}
	return s.issue(ctx, u)
}

func (s *authService) Logout(ctx context.Context, actor Actor) error {
	return storeErr(s.users.ClearRefresh(ctx, actor.ID), "User")
}

func (s *authService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "User")
	}
	return u, nil
}

// issue signs an access token and stores a fresh opaque refresh token.
func (s *authService) issue(ctx context.Context, u *models.User) (*Tokens, error) {
	access, exp, err := s.issuer.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("new refresh token: %w", err)
	}
	if err := s.users.UpdateRefresh(ctx, u.ID, rt, s.now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: rt, ExpiresAt: exp}, nil
}

const refreshTokenBytes = 32

// newRefreshToken returns an opaque hex token; only its exact value is ever compared.
func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
