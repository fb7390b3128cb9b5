package service

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(f *fixture) *AuthService {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret-test-secret-test-secret", ExpireTime: time.Hour}}
	return NewAuthService(f.users, f.progress, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)
	ctx := context.Background()

	user := &model.User{Name: "Ada", Email: " Ada@Example.com ", Password: "s3cret-pass"}
	require.NoError(t, auth.Register(ctx, user))
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.Password)
	assert.Equal(t, model.Student, user.Role)

	err := auth.Register(ctx, &model.User{Name: "Ada", Email: "ada@example.com", Password: "x"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, _, err = auth.Login(ctx, "ada@example.com", "wrong", time.UTC)
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = auth.Login(ctx, "nobody@example.com", "x", time.UTC)
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	token, logged, err := auth.Login(ctx, "ADA@example.com", "s3cret-pass", time.UTC)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotNil(t, logged.LastLogin)

	claims, err := util.ParseJWT(token, auth.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLoginDecaysStaleStreak(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)
	ctx := context.Background()

	user := &model.User{Name: "Lin", Email: "lin@example.com", Password: "pw-pw-pw"}
	require.NoError(t, auth.Register(ctx, user))
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"current_streak":      5,
		"longest_streak":      5,
		"last_completed_date": f.clock.Now().AddDate(0, 0, -4),
	}).Error)

	_, logged, err := auth.Login(ctx, "lin@example.com", "pw-pw-pw", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, logged.CurrentStreak)
	assert.Equal(t, 5, logged.LongestStreak)
}
