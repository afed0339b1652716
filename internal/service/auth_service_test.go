package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository/memory"
	"github.com/makingtools/rapidbites-sub001/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func seedOperator(t *testing.T, store *memory.Store, username, password string, active bool) model.Operator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return store.AddOperator(model.Operator{
		Username:     username,
		Name:         "Test " + username,
		PasswordHash: string(hash),
		Role:         model.RoleCashier,
		Active:       active,
	})
}

func TestLogin(t *testing.T) {
	store := memory.New()
	op := seedOperator(t, store, "cajero1", "s3cret", true)
	svc := service.NewAuthService(store, testSecret, 8*time.Hour)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "cajero1", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, op.ID.String(), resp.Operator.ID)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, op.ID.String(), claims["user_id"])
	assert.Equal(t, model.RoleCashier, claims["role"])
}

func TestLogin_WrongPassword(t *testing.T) {
	store := memory.New()
	seedOperator(t, store, "cajero1", "s3cret", true)
	svc := service.NewAuthService(store, testSecret, time.Hour)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "cajero1", Password: "nope"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_InactiveOrUnknown(t *testing.T) {
	store := memory.New()
	seedOperator(t, store, "retired", "s3cret", false)
	svc := service.NewAuthService(store, testSecret, time.Hour)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "retired", Password: "s3cret"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "ghost", Password: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}
