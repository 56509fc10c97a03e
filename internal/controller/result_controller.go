package controller

import (
	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	ResultService *service.ResultService
}

func NewResultController(resultService *service.ResultService) *ResultController {
	return &ResultController{ResultService: resultService}
}

type HistoryRequest struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	QuizID string `form:"quiz_id"`
}

// ResultPage godoc
// @Summary 作答结果
// @Description 远程 attempt 与题目合并后的逐题回顾
// @Tags 结果
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Param attemptId path string true "作答ID"
// @Success 200 {object} util.Response{data=model.ResultPage}
// @Router /api/quizzes/{id}/attempts/{attemptId} [get]
func (c *ResultController) ResultPage(ctx *gin.Context) {
	page, err := c.ResultService.ResultPage(ctx.Request.Context(), util.GetIdentity(ctx),
		model.RemoteID(ctx.Param("id")), model.RemoteID(ctx.Param("attemptId")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// History godoc
// @Summary 本地成绩历史
// @Tags 结果
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param quiz_id query string false "测验ID"
// @Success 200 {object} util.Response{data=service.HistoryPage}
// @Router /api/results [get]
func (c *ResultController) History(ctx *gin.Context) {
	var req HistoryRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	page, err := c.ResultService.History(util.GetIdentity(ctx), req.QuizID, req.Page, req.Limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}
