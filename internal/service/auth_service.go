package service

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/repository"
	"codegrow_backend/internal/util"
	"codegrow_backend/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Progress *ProgressService
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, progress *ProgressService, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Progress: progress,
		Cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := s.UserRepo.FindByEmail(ctx, user.Email)
	if err == nil {
		return util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	user.Role = model.Student
	return s.UserRepo.Create(ctx, user)
}

// Login 登录即会话开始，顺带执行 streak 衰减检查。
// 衰减失败不影响登录。
func (s *AuthService) Login(ctx context.Context, email, password string, loc *time.Location) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}

	if _, err := s.StartSession(ctx, user.ID, loc); err != nil {
		logger.Log.Warn("Streak decay check failed on login", zap.Uint("userID", user.ID), zap.Error(err))
	}

	// 重新读取以返回衰减后的进度
	if fresh, err := s.UserRepo.FindByID(ctx, user.ID); err == nil {
		user = fresh
	}
	return token, user, nil
}

// StartSession 记录登录时间并检查 streak 是否失效
func (s *AuthService) StartSession(ctx context.Context, userID uint, loc *time.Location) (bool, error) {
	if err := s.UserRepo.UpdateLastLogin(ctx, userID, time.Now()); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userID", userID), zap.Error(err))
	}
	return s.Progress.CheckAndDecay(ctx, userID, loc)
}

func (s *AuthService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
