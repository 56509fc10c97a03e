package controller

import (
	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
)

// ExamController 作答会话
type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

func (c *ExamController) respondView(ctx *gin.Context, view *model.ExamView, err error) {
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Start godoc
// @Summary 开始作答
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 201 {object} util.Response{data=model.ExamView}
// @Router /api/quizzes/{id}/sessions [post]
func (c *ExamController) Start(ctx *gin.Context) {
	view, err := c.ExamService.Start(ctx.Request.Context(), util.GetIdentity(ctx), model.RemoteID(ctx.Param("id")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// Get godoc
// @Summary 当前作答视图
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Success 200 {object} util.Response{data=model.ExamView}
// @Router /api/exam-sessions/{sid} [get]
func (c *ExamController) Get(ctx *gin.Context) {
	view, err := c.ExamService.Get(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"))
	c.respondView(ctx, view, err)
}

// Discard godoc
// @Summary 放弃作答
// @Tags 作答
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/exam-sessions/{sid} [delete]
func (c *ExamController) Discard(ctx *gin.Context) {
	if err := c.ExamService.Discard(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid")); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SelectChoice godoc
// @Summary 选择答案
// @Description 不改变当前题目
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Param request body model.SelectChoiceRequest true "题号与选项"
// @Success 200 {object} util.Response{data=model.ExamView}
// @Router /api/exam-sessions/{sid}/answers [put]
func (c *ExamController) SelectChoice(ctx *gin.Context) {
	var req model.SelectChoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.ExamService.SelectChoice(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"), *req.QuestionIndex, req.ChoiceID)
	c.respondView(ctx, view, err)
}

// GoTo godoc
// @Summary 跳转到指定题目
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Param request body model.GoToRequest true "题号"
// @Success 200 {object} util.Response{data=model.ExamView}
// @Router /api/exam-sessions/{sid}/goto [post]
func (c *ExamController) GoTo(ctx *gin.Context) {
	var req model.GoToRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.ExamService.GoTo(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"), *req.Index)
	c.respondView(ctx, view, err)
}

// Next godoc
// @Summary 下一题
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Success 200 {object} util.Response{data=model.ExamView}
// @Router /api/exam-sessions/{sid}/next [post]
func (c *ExamController) Next(ctx *gin.Context) {
	view, err := c.ExamService.Next(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"))
	c.respondView(ctx, view, err)
}

// Previous godoc
// @Summary 上一题
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Success 200 {object} util.Response{data=model.ExamView}
// @Router /api/exam-sessions/{sid}/previous [post]
func (c *ExamController) Previous(ctx *gin.Context) {
	view, err := c.ExamService.Previous(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"))
	c.respondView(ctx, view, err)
}

// Paginate godoc
// @Summary 翻页题号选择器
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Param request body model.PaginateRequest true "方向 -1 或 1"
// @Success 200 {object} util.Response{data=model.ExamView}
// @Router /api/exam-sessions/{sid}/page [post]
func (c *ExamController) Paginate(ctx *gin.Context) {
	var req model.PaginateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.ExamService.Paginate(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"), req.Direction)
	c.respondView(ctx, view, err)
}

// Submit godoc
// @Summary 提交作答
// @Description 全部作答后评分；mode 为 local 或 remote
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sid path string true "会话ID"
// @Param request body model.SubmitRequest false "评分方式"
// @Success 200 {object} util.Response{data=model.QuizResult}
// @Failure 422 {object} util.Response "存在未作答题目"
// @Router /api/exam-sessions/{sid}/submit [post]
func (c *ExamController) Submit(ctx *gin.Context) {
	var req model.SubmitRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	result, err := c.ExamService.Submit(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Param("sid"), req.Mode)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
