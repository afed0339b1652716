package service

import (
	"context"
	"errors"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo       repository.OperatorRepository
	secret     []byte
	expiration time.Duration
}

func NewAuthService(repo repository.OperatorRepository, secret string, expiration time.Duration) AuthService {
	return &authService{repo: repo, secret: []byte(secret), expiration: expiration}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	op, err := s.repo.FindOperatorByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(op)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.expiration.Seconds()),
		Operator: dto.OperatorResponse{
			ID:       op.ID.String(),
			Username: op.Username,
			Name:     op.Name,
			Email:    op.Email,
			Role:     op.Role,
		},
	}, nil
}

// generateToken signs the claims read back by middleware.JWTAuth.
func (s *authService) generateToken(op *model.Operator) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  op.ID.String(),
		"username": op.Username,
		"name":     op.Name,
		"role":     op.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.expiration).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
