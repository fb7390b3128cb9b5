package controller

import (
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 把服务层错误映射为 HTTP 响应
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, executor.ErrExecutionFailed):
		util.ErrorWithData(ctx, http.StatusBadGateway, "代码执行服务暂时不可用，请稍后重试", gin.H{"retryable": true})
	case util.IsNotFound(err):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrEmptyCode),
		errors.Is(err, util.ErrInvalidContent),
		errors.Is(err, util.ErrInvalidTimezone):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrUnauthenticated), errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(ctx, http.StatusConflict, "该邮箱已被注册")
	default:
		util.LogInternalError(ctx, err)
	}
}

// currentUserID 由 AuthMiddleware 保证存在；缺失时直接返回 401
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil || claims.UserID == 0 {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

func isAdmin(ctx *gin.Context) bool {
	claims := util.GetUserFromContext(ctx)
	return claims != nil && claims.Role == model.Admin
}
