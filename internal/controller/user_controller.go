package controller

import (
	"codegrow_backend/internal/service"
	"codegrow_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	StorageService *service.StorageService
}

func NewUserController(storageService *service.StorageService) *UserController {
	return &UserController{StorageService: storageService}
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 用户
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param avatar formData file true "头像图片，不超过 2MB"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/user/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "请选择头像文件")
		return
	}

	url, err := c.StorageService.UploadAvatar(ctx.Request.Context(), userID, file)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatar": url})
}
