// Package authpw provides email/password registration and authentication.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"civicvoice/api/internal/store"
	"civicvoice/api/internal/util"
)

// Sentinel errors the HTTP layer maps to status codes.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("name, email, and password are required")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// anonymousNames is the pool public complaint feeds draw display names from,
// so authors are never identified by their real name.
var anonymousNames = []string{
	"Brave Lion", "Clever Fox", "Wise Owl", "Swift Eagle", "Silent Wolf",
	"Curious Cat", "Bold Bear", "Gentle Deer", "Mighty Tiger", "Happy Dolphin",
	"Lucky Penguin", "Calm Turtle", "Shy Panda", "Eager Beaver", "Joyful Robin",
	"Noble Falcon", "Bright Hawk", "Daring Jaguar", "Fierce Panther", "Loyal Serpent",
	"Patient Shark", "Quick Sparrow", "Radiant Stallion", "Serene Swan", "Strong Whale",
	"Valiant Phoenix", "Vigilant Dragon", "Witty Griffin", "Zealous Sparrow", "Amber Wolf",
	"Azure Dragon", "Crimson Hawk", "Golden Griffin", "Jade Serpent", "Onyx Panther",
	"Ruby Falcon", "Silver Lion", "Emerald Fox", "Mystic Owl", "Ancient Turtle",
	"Hidden Badger", "Shadow Fox", "Spirit Eagle", "Astral Wolf", "Cosmic Serpent",
	"Lunar Tiger", "Solar Hawk", "Ethereal Deer", "Wandering Albatross", "Gallant Horse",
	"Humble Bee", "Keen Otter", "Jovial Jay", "Nimble Rabbit", "Quiet Mole",
}

// UserStore defines the storage interface for auth.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

// Service provides email/password authentication.
type Service struct {
	store UserStore
}

// NewService creates a new auth service.
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// RegisterRequest contains registration parameters. Role defaults to
// "user" when empty; admins pass an explicit role when provisioning
// partner or admin accounts.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
	Category store.Category
	ZoneID   string
}

// Register creates a new account with a bcrypt password hash and a random
// anonymous display name.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return store.User{}, ErrInvalidInput
	}
	if len(req.Password) < 8 {
		return store.User{}, ErrWeakPassword
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = "user"
	}

	user := store.User{
		ID:            util.NewID("usr"),
		Name:          name,
		AnonymousName: anonymousNames[rand.Intn(len(anonymousNames))],
		Email:         email,
		PasswordHash:  string(hash),
		Role:          role,
		Category:      req.Category,
		ZoneID:        req.ZoneID,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.User{}, ErrEmailTaken
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks email/password and returns the user. Lookup and
// compare failures collapse into one error so callers cannot probe for
// registered emails.
func (s *Service) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}
