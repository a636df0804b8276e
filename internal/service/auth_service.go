package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/model"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/pkg/apperror"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

type AuthService interface {
	// Token signs a user in by username, creating the account on first
	// contact. A matching admin password promotes the account.
	Token(ctx context.Context, username, adminPassword string) (string, *model.User, error)
	// EnsureReferralCode assigns the user a shareable code on first ask.
	EnsureReferralCode(ctx context.Context, userID uuid.UUID) (string, error)
}

type authService struct {
	userRepo  repository.UserRepository
	secret    string
	adminHash []byte
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) AuthService {
	var adminHash []byte
	if cfg.AdminPassword != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("failed to hash admin password, admin login disabled: %v", err)
		} else {
			adminHash = h
		}
	}

	return &authService{
		userRepo:  userRepo,
		secret:    cfg.JWTSecret,
		adminHash: adminHash,
	}
}

func (s *authService) Token(ctx context.Context, username, adminPassword string) (string, *model.User, error) {
	user, err := s.userRepo.EnsureUser(ctx, username)
	if err != nil {
		return "", nil, err
	}

	if adminPassword != "" {
		if s.adminHash == nil {
			return "", nil, apperror.ErrUnauthorized
		}
		if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(adminPassword)); err != nil {
			return "", nil, apperror.ErrUnauthorized
		}
		if !user.IsAdmin {
			if err := s.userRepo.PromoteToAdmin(ctx, user.ID); err != nil {
				return "", nil, err
			}
			user.IsAdmin = true
		}
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", nil, err
	}

	return signed, user, nil
}

func (s *authService) EnsureReferralCode(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return "", err
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	code := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	if err := s.userRepo.SetReferralCode(ctx, userID, code); err != nil {
		return "", err
	}
	return code, nil
}
