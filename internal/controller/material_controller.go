package controller

import (
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
)

type MaterialController struct {
	Storage *service.StorageService
}

func NewMaterialController(storage *service.StorageService) *MaterialController {
	return &MaterialController{Storage: storage}
}

// Download godoc
// @Summary 下载已归档的学习资料
// @Description 仅本地存储可用，只能访问自己上传的资料
// @Tags 测验
// @Produce application/pdf
// @Security BearerAuth
// @Param jobId path string true "任务ID"
// @Param name path string true "文件名"
// @Success 200 {file} binary
// @Router /api/materials/{jobId}/{name} [get]
func (c *MaterialController) Download(ctx *gin.Context) {
	path, err := c.Storage.LocalMaterialPath(util.GetIdentity(ctx).ID, ctx.Param("jobId"), ctx.Param("name"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	ctx.File(path)
}
