package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

const defaultTTL = 24 * time.Hour

// ErrNotConfigured is returned while no signing secret is set.
var ErrNotConfigured = domain.NewError(domain.ErrCodeUnauthorized, "api tokens are disabled")

// Claims identify the admin calling the read API.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret  string
	Issuer  string
	TTL     time.Duration
	AdminID int64
}

// UseCase issues and verifies HS256 tokens for the admin read API.
type UseCase struct {
	users  repository.UserRepository
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

func New(users repository.UserRepository, cfg Config, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &UseCase{
		users:  users,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// IssueToken signs a token for the admin. ttl overrides the configured lifetime when positive.
func (uc *UseCase) IssueToken(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	if uc.cfg.Secret == "" {
		return "", time.Time{}, ErrNotConfigured
	}
	if userID != uc.cfg.AdminID {
		return "", time.Time{}, domain.ErrAdminOnly
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !user.IsAdmin() {
		return "", time.Time{}, domain.ErrAdminOnly
	}

	if ttl <= 0 {
		ttl = uc.cfg.TTL
	}
	now := uc.now()
	expires := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    uc.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	uc.logger.Info("api token issued", zap.Int64("user_id", userID), zap.Time("expires_at", expires))
	return signed, expires, nil
}

// Verify returns the admin id carried by a valid token.
func (uc *UseCase) Verify(token string) (int64, error) {
	if uc.cfg.Secret == "" {
		return 0, ErrNotConfigured
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(uc.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return 0, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if uc.cfg.Issuer != "" && !claims.VerifyIssuer(uc.cfg.Issuer, true) {
		return 0, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", fmt.Errorf("issuer %q", claims.Issuer))
	}
	if claims.UserID != uc.cfg.AdminID {
		return 0, domain.ErrAdminOnly
	}
	return claims.UserID, nil
}
