package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-cue/internal/config"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
)

const (
	accessTokenType = "access"
	minSecretLength = 32
	allowedSkew     = 2 * time.Minute
)

var signingMethod = jwt.SigningMethodHS256

// hmacJWTService issues and checks HS256 access tokens.
type hmacJWTService struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// jwtCustomClaims is the wire form of Claims.
type jwtCustomClaims struct {
	UserID    string `json:"uid"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// Option configures the JWT service.
type Option func(*hmacJWTService)

// WithTimeFunc overrides the clock used to issue and validate tokens.
func WithTimeFunc(now func() time.Time) Option {
	return func(s *hmacJWTService) { s.now = now }
}

// NewJWTService builds a service from the auth section of the config.
func NewJWTService(cfg config.AuthConfig, opts ...Option) (JWTService, error) {
	switch {
	case len(cfg.JWTSecret) < minSecretLength:
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	case cfg.TokenLifetimeMinutes < 1:
		return nil, errors.New("token lifetime must be at least one minute")
	}

	s := &hmacJWTService{
		key:      []byte(cfg.JWTSecret),
		lifetime: time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithLeeway(allowedSkew),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithExpirationRequired(),
	)
	return s, nil
}

// GenerateToken signs an access token whose subject is userID.
func (s *hmacJWTService) GenerateToken(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrEmptyUserID
	}

	issued := s.now()
	claims := jwtCustomClaims{
		UserID:    userID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.lifetime)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.key)
	if err != nil {
		logger.FromContext(ctx).Error("sign access token", "error", err, "user_id", userID)
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses tokenString and returns its claims. Every failure is
// reported as one of the package's token errors.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)

	var wire jwtCustomClaims
	token, err := s.parser.ParseWithClaims(tokenString, &wire, s.keyFor)
	if err != nil {
		mapped := classifyParseError(err)
		log.Debug("token rejected", "error", err, "reason", mapped)
		return nil, mapped
	}
	if !token.Valid {
		log.Debug("token rejected", "reason", "invalid")
		return nil, ErrInvalidToken
	}

	if wire.TokenType != accessTokenType {
		log.Debug("token rejected", "reason", "type", "type", wire.TokenType)
		return nil, ErrWrongTokenType
	}
	if wire.UserID == "" || wire.UserID != wire.Subject {
		log.Debug("token rejected", "reason", "subject mismatch")
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:    wire.UserID,
		TokenType: wire.TokenType,
		Subject:   wire.Subject,
		IssuedAt:  wire.IssuedAt.Time,
		ExpiresAt: wire.ExpiresAt.Time,
		ID:        wire.ID,
	}, nil
}

func (s *hmacJWTService) keyFor(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.key, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	default:
		return ErrInvalidToken
	}
}
