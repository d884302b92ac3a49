// Package auth signs users up and in, and issues session tokens.
//
// A token is an HS256 JWT whose subject is the user id and whose jti names a
// server-side session record. The record is checked on every request, so
// signing out revokes a token before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

const (
	issuer            = "fintrack"
	minPasswordLength = 6
	maxPasswordBytes  = 72 // bcrypt limit
	DefaultBcryptCost = 12
	DefaultSessionTTL = 7 * 24 * time.Hour
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be %d to %d characters", minPasswordLength, maxPasswordBytes)
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Config holds the token and hashing settings.
type Config struct {
	Secret     string
	SessionTTL time.Duration
	BcryptCost int
}

// Grant is the result of a successful sign-in or sign-up.
type Grant struct {
	Token   string
	Session ports.Session
	Profile core.Profile
}

type Service struct {
	users    ports.UserStore
	sessions ports.SessionStore
	secret   []byte
	ttl      time.Duration
	cost     int
	now      func() time.Time
	logger   *log.Logger
	// hash compared against when the email is unknown
	dummyHash []byte
}

type claims struct {
	jwt.RegisteredClaims
}

func NewService(users ports.UserStore, sessions ports.SessionStore, cfg Config, logger *log.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hashing: %w", err)
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		secret:    []byte(cfg.Secret),
		ttl:       cfg.SessionTTL,
		cost:      cfg.BcryptCost,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentAuth),
		dummyHash: dummy,
	}, nil
}

// SignUp creates an account with its profile and opens a session for it.
// An empty name defaults to the local part of the email.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (Grant, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Grant{}, err
	}
	if password == "" {
		return Grant{}, ErrMissingCredentials
	}
	if utf8.RuneCountInString(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return Grant{}, ErrWeakPassword
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Grant{}, fmt.Errorf("hash password: %w", err)
	}
	profile, err := s.users.CreateUser(ctx, email, string(hash), name)
	if err != nil {
		return Grant{}, fmt.Errorf("sign up: %w", err)
	}
	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, profile.ID)
	return s.openSession(ctx, profile)
}

// SignIn checks the email and password pair and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Grant, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Grant{}, ErrMissingCredentials
	}
	email = strings.ToLower(strings.TrimSpace(email))

	creds, err := s.users.GetCredentials(ctx, email)
	if errors.Is(err, ports.ErrNotFound) {
		// Keep the response time of unknown emails close to wrong passwords.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.WarnContext(ctx, "Sign-in for unknown email", log.FieldErrorType, log.ErrorTypeAuth)
		return Grant{}, ErrInvalidCredentials
	}
	if err != nil {
		return Grant{}, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Sign-in with wrong password", log.FieldUserID, creds.UserID, log.FieldErrorType, log.ErrorTypeAuth)
		return Grant{}, ErrInvalidCredentials
	}

	profile, err := s.users.GetProfile(ctx, creds.UserID)
	if err != nil {
		return Grant{}, fmt.Errorf("load profile: %w", err)
	}
	return s.openSession(ctx, profile)
}

// SignOut revokes the session named by token. Expired tokens can still be
// signed out.
func (s *Service) SignOut(ctx context.Context, token string) error {
	c, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	if err := s.sessions.RevokeSession(ctx, c.ID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	s.logger.InfoContext(ctx, "User signed out", log.FieldUserID, c.Subject, log.FieldSessionID, c.ID)
	return nil
}

// Authenticate verifies token and returns its active session.
func (s *Service) Authenticate(ctx context.Context, token string) (ports.Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return ports.Session{}, err
	}
	sess, err := s.sessions.GetSession(ctx, c.ID)
	if errors.Is(err, ports.ErrNotFound) {
		return ports.Session{}, ErrInvalidToken
	}
	if err != nil {
		return ports.Session{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != c.Subject || !sess.Active(s.now()) {
		return ports.Session{}, ErrInvalidToken
	}
	return sess, nil
}

// Profile returns the profile of userID.
func (s *Service) Profile(ctx context.Context, userID string) (core.Profile, error) {
	return s.users.GetProfile(ctx, userID)
}

// UpdateProfile validates and stores p for userID.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p core.ProfilePatch) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	profile, err := s.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

func (s *Service) openSession(ctx context.Context, profile core.Profile) (Grant, error) {
	now := s.now().UTC()
	sess := ports.Session{
		ID:        uuid.NewString(),
		UserID:    profile.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return Grant{}, fmt.Errorf("create session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   profile.ID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Grant{}, fmt.Errorf("sign token: %w", err)
	}
	return Grant{Token: signed, Session: sess, Profile: profile}, nil
}

func (s *Service) parse(token string, extra ...jwt.ParserOption) (*claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	}, extra...)
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.ID == "" || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrMissingCredentials
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
