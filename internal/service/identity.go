package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ayushanand27/xhire/internal/domain"
	"github.com/ayushanand27/xhire/internal/repository"
)

// Claims are the identity-provider claims the service relies on. The subject is the
// provider's user id.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// IdentityService verifies bearer tokens and provisions a local user for each
// verified subject on first sight.
type IdentityService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration

	provisioning singleflight.Group
}

func NewIdentityService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiry time.Duration) (*IdentityService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for IdentityService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiry <= 0 {
		jwtExpiry = 24 * time.Hour
	}
	return &IdentityService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: jwtExpiry,
	}, nil
}

// VerifyToken checks signature, algorithm and expiry. Every failure is
// ErrAuthenticationFailed; the cause is only logged.
func (s *IdentityService) VerifyToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		logCtx := logrus.WithError(err)
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			logCtx = logCtx.WithField("reason", "expired")
		}
		logCtx.Debug("Token verification failed")
		return nil, ErrAuthenticationFailed
	}
	if claims.Subject == "" {
		return nil, ErrAuthenticationFailed
	}
	return claims, nil
}

// Authenticate verifies the token and returns the local user for its subject.
func (s *IdentityService) Authenticate(ctx context.Context, tokenStr string) (*domain.User, error) {
	claims, err := s.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}
	return s.Provision(ctx, claims)
}

// Provision returns the local user for a verified subject, creating it or refreshing
// its profile as needed. Concurrent first requests for one subject share one insert.
func (s *IdentityService) Provision(ctx context.Context, claims *Claims) (*domain.User, error) {
	v, err, _ := s.provisioning.Do(claims.Subject, func() (any, error) {
		return s.provision(ctx, claims)
	})
	if err != nil {
		return nil, err
	}
	u := *v.(*domain.User)
	return &u, nil
}

func (s *IdentityService) provision(ctx context.Context, claims *Claims) (*domain.User, error) {
	logCtx := logrus.WithField("subject", claims.Subject)
	user, err := s.userRepo.FindByExternalID(ctx, claims.Subject)
	switch {
	case err == nil:
		if !profileChanged(user, claims) {
			return user, nil
		}
		applyProfile(user, claims)
		if err := s.userRepo.Save(ctx, user); err != nil {
			logCtx.WithError(err).Warn("Failed to refresh user profile")
		}
		return user, nil
	case !errors.Is(err, repository.ErrNotFound):
		logCtx.WithError(err).Error("Failed to look up user")
		return nil, ErrInternalServer
	}

	user = &domain.User{ExternalID: claims.Subject}
	applyProfile(user, claims)
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Another process provisioned the same subject first.
			existing, ferr := s.userRepo.FindByExternalID(ctx, claims.Subject)
			if ferr == nil {
				return existing, nil
			}
		}
		logCtx.WithError(err).Error("Failed to provision user")
		return nil, ErrInternalServer
	}
	logCtx.WithField("user_id", user.ID).Info("Provisioned new user")
	return user, nil
}

func profileChanged(u *domain.User, c *Claims) bool {
	return (c.Name != "" && c.Name != u.Name) ||
		(c.Email != "" && c.Email != u.Email) ||
		(c.Picture != "" && c.Picture != u.AvatarURL)
}

func applyProfile(u *domain.User, c *Claims) {
	if c.Name != "" {
		u.Name = c.Name
	}
	if c.Email != "" {
		u.Email = c.Email
	}
	if c.Picture != "" {
		u.AvatarURL = c.Picture
	}
}

func (s *IdentityService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, ErrUserNotFound)
	}
	return user, nil
}

// IssueToken signs a token the way the identity provider would. It backs the
// development `token` command and tests.
func (s *IdentityService) IssueToken(subject, name, email string) (string, error) {
	if subject == "" {
		return "", invalid("subject: required")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
