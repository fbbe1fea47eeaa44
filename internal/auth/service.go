package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-kasir/internal/common"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour

	// RoleCashier can ring sales and record receipts. RoleAdmin can also
	// manage the catalog, parties, and users.
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

// User is the safe subset of a user row returned to clients.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is a persisted refresh token.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Store persists users and refresh sessions.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash, role string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, string, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetSession(ctx context.Context, tokenHash string) (Session, error)
	RotateSession(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, tokenHash string) error
}

// TokenPair bundles a signed access token with its rotated refresh token.
type TokenPair struct {
	AccessToken   string    `json:"accessToken"`
	AccessExpiry  time.Time `json:"accessExpiresAt"`
	RefreshToken  string    `json:"-"`
	RefreshExpiry time.Time `json:"-"`
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	User User `json:"user"`
	TokenPair
}

// Config configures the auth service.
type Config struct {
	Store      Store
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

// Service authenticates cashiers and manages their sessions.
type Service struct {
	store      Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	signer     jwa.SignatureAlgorithm
	validator  TokenValidator
	issuer     string
	audience   string
	clockSkew  time.Duration
}

// NewService constructs a Service with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-kasir"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "kasir-pos"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		store:      cfg.Store,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		signer:     jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow lets tests override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register creates a user. An empty role defaults to cashier.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, common.Validation("name is required", nil)
	}
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return User{}, common.Validation("email is required", nil)
	}
	if len(password) < 8 {
		return User{}, common.Validation("password must be at least 8 characters", nil)
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = RoleCashier
	}
	if role != RoleCashier && role != RoleAdmin {
		return User{}, common.Validation("role must be cashier or admin", nil)
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, name, normalized, hash, role)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return User{}, common.NewAppError(common.CodeConflict, "email is already registered", http.StatusConflict, err)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" || password == "" {
		return LoginResult{}, unauthorized(nil)
	}

	u, hash, err := s.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		return LoginResult{}, unauthorized(err)
	}
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil || !ok {
		return LoginResult{}, unauthorized(err)
	}

	accessToken, accessExpiry, err := s.signAccessToken(u.ID, u.Role)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshExpiry, err := s.createSession(ctx, u.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	return LoginResult{
		User: u,
		TokenPair: TokenPair{
			AccessToken:   accessToken,
			AccessExpiry:  accessExpiry,
			RefreshToken:  refreshToken,
			RefreshExpiry: refreshExpiry,
		},
	}, nil
}

// Refresh validates and rotates a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return TokenPair{}, unauthorized(nil)
	}

	hashed := hashToken(token)
	session, err := s.store.GetSession(ctx, hashed)
	if err != nil {
		return TokenPair{}, unauthorized(err)
	}
	if session.RevokedAt != nil || s.now().After(session.ExpiresAt) {
		_ = s.store.RevokeSession(ctx, hashed)
		return TokenPair{}, unauthorized(nil)
	}

	u, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		_ = s.store.RevokeSession(ctx, hashed)
		return TokenPair{}, unauthorized(err)
	}

	accessToken, accessExpiry, err := s.signAccessToken(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	newToken, err := generateToken(48)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	refreshExpiry := s.now().Add(s.refreshTTL)
	if err := s.store.RotateSession(ctx, session.ID, hashToken(newToken), refreshExpiry); err != nil {
		_ = s.store.RevokeSession(ctx, hashed)
		return TokenPair{}, fmt.Errorf("rotate session: %w", err)
	}

	return TokenPair{
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  newToken,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Logout revokes the refresh token. A blank token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, hashToken(token))
}

// Me fetches the current authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return User{}, unauthorized(err)
	}
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return User{}, unauthorized(err)
	}
	return u, nil
}

// ParseAccessToken validates an access token and returns the subject.
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", unauthorized(nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", unauthorized(err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return "", unauthorized(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return "", unauthorized(err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return "", unauthorized(err)
	}
	return parsed.Subject(), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(userID uuid.UUID, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim("role", role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func (s *Service) createSession(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	token, err := generateToken(48)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.refreshTTL)
	if err := s.store.CreateSession(ctx, userID, hashToken(token), expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Only the SHA-256 of a refresh token ever touches the database.
func hashToken(token string) string {
	return common.Sha256Hex(token)
}

func unauthorized(err error) *common.AppError {
	return common.NewAppError(common.CodeUnauthorized, "invalid credentials or token", http.StatusUnauthorized, err)
}
