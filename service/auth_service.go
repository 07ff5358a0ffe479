package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"bety/config"
	"bety/events"
	"bety/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Session is an authenticated identity with its bearer token
type Session struct {
	Profile   *models.Profile
	Token     string
	ExpiresAt time.Time
}

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Gender   string
	Role     models.Role
}

// AuthService defines the interface for account and session management
type AuthService interface {
	// Register creates an account and signs it in
	Register(ctx context.Context, input RegisterInput) (*Session, error)

	// SignIn verifies the credentials and opens a session
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// Restore rebuilds a session from a previously issued token
	Restore(ctx context.Context, token string) (*Session, error)

	// SignOut ends the current session
	SignOut(ctx context.Context) error

	// Current returns the active session, or nil when signed out
	Current() *Session
}

type authService struct {
	uowFactory UnitOfWorkFactory
	bus        *events.Bus
	config     *config.Config

	mu      sync.RWMutex
	session *Session
}

// NewAuthService creates a new auth service
func NewAuthService(uowFactory UnitOfWorkFactory, bus *events.Bus, cfg *config.Config) AuthService {
	return &authService{
		uowFactory: uowFactory,
		bus:        bus,
		config:     cfg,
	}
}

// Register creates an account and signs it in
func (s *authService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" {
		return nil, validationf("name is required")
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, validationf("email %q is not valid", input.Email)
	}
	if len(input.Password) < 8 {
		return nil, validationf("password must be at least 8 characters")
	}
	if input.Role == "" {
		input.Role = models.RoleClient
	}
	if !input.Role.Valid() {
		return nil, validationf("role %q is not valid", input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.ProfileRepository().GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	profile := &models.Profile{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		Gender:       input.Gender,
		Role:         input.Role,
	}
	if err := uow.ProfileRepository().Create(ctx, profile); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"profileId": profile.ID,
		"role":      profile.Role,
	}).Info("Account registered")

	return s.openSession(ctx, profile)
}

// SignIn verifies the credentials and opens a session
func (s *authService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validationf("email and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	profile, err := uow.ProfileRepository().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		// Same error as a bad password so the response does not reveal
		// which accounts exist
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, profile)
}

// Restore rebuilds a session from a previously issued token
func (s *authService) Restore(ctx context.Context, token string) (*Session, error) {
	profileID, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	profile, err := uow.ProfileRepository().GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, profile)
}

// SignOut ends the current session
func (s *authService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	hadSession := s.session != nil
	s.session = nil
	s.mu.Unlock()

	if !hadSession {
		return ErrNotSignedIn
	}

	s.bus.Emit(ctx, events.SessionChangedEvent{SignedIn: false})
	return nil
}

// Current returns the active session, or nil when signed out
func (s *authService) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *authService) openSession(ctx context.Context, profile *models.Profile) (*Session, error) {
	expiresAt := time.Now().Add(s.config.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": profile.ID.String(),
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	session := &Session{
		Profile:   profile,
		Token:     signed,
		ExpiresAt: expiresAt,
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.bus.Emit(ctx, events.SessionChangedEvent{
		ProfileID: &profile.ID,
		SignedIn:  true,
	})

	return session, nil
}

func (s *authService) parseToken(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	profileID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}

	return profileID, nil
}
