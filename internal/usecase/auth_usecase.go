package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
)

var errInvalidCredentials = unauthorized("Invalid credentials")

func unauthorized(msg string) error {
	return fmt.Errorf("%w: %s", models.ErrUnauthorized, msg)
}

type AuthUsecase interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest, client models.ClientInfo) (*models.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*models.User, error)
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type authUsecase struct {
	userRepo   mongodb.UserRepository
	tokenRepo  mongodb.AuthTokenRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthUsecase(conf *config.Config, userRepo mongodb.UserRepository, tokenRepo mongodb.AuthTokenRepository) AuthUsecase {
	return &authUsecase{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtSecret:  []byte(conf.Auth.JWTSecret),
		tokenTTL:   conf.Auth.TokenTTL,
		bcryptCost: conf.Auth.BcryptCost,
		now:        time.Now,
	}
}

func (uc *authUsecase) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	_, err := uc.userRepo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, models.AlreadyExists("User with this email already exists")
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     req.Username,
		Name:         req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.AlreadyExists("User with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (uc *authUsecase) Login(ctx context.Context, req models.LoginRequest, client models.ClientInfo) (*models.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, unauthorized("user account is deactivated")
	}

	token, expiresAt, err := uc.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	authToken := &models.AuthToken{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: uc.now(),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}
	if err := uc.tokenRepo.Create(ctx, authToken); err != nil {
		return nil, fmt.Errorf("failed to store auth token: %w", err)
	}

	return &models.LoginResponse{
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

func (uc *authUsecase) Logout(ctx context.Context, token string) error {
	if err := uc.tokenRepo.RevokeToken(ctx, hashToken(token)); err != nil {
		return notFound(err, "Token")
	}
	return nil
}

func (uc *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := uc.parseJWT(tokenString)
	if err != nil {
		return nil, unauthorized("invalid token")
	}

	authToken, err := uc.tokenRepo.GetByTokenHash(ctx, hashToken(tokenString))
	if errors.Is(err, models.ErrNotFound) {
		return nil, unauthorized("token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get auth token: %w", err)
	}
	if authToken.IsRevoked {
		return nil, unauthorized("token has been revoked")
	}
	if authToken.ExpiresAt.Before(uc.now()) {
		return nil, unauthorized("token has expired")
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, unauthorized("invalid user ID in token")
	}
	user, err := uc.userRepo.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, unauthorized("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, unauthorized("user account is deactivated")
	}
	return user, nil
}

func (uc *authUsecase) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return uc.tokenRepo.DeleteExpiredTokens(ctx, uc.now())
}

func (uc *authUsecase) generateJWT(user *models.User) (string, time.Time, error) {
	now := uc.now()
	expiresAt := now.Add(uc.tokenTTL)

	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (uc *authUsecase) parseJWT(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return uc.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(uc.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return &models.JWTClaims{
		UserID: cast.ToString(claims["user_id"]),
		Email:  cast.ToString(claims["email"]),
		Exp:    cast.ToInt64(claims["exp"]),
		Iat:    cast.ToInt64(claims["iat"]),
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
