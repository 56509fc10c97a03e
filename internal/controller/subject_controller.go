package controller

import (
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
)

type SubjectController struct {
	QuizService *service.QuizService
}

func NewSubjectController(quizService *service.QuizService) *SubjectController {
	return &SubjectController{QuizService: quizService}
}

type FindOrCreateSubjectRequest struct {
	Title string `json:"title" binding:"required"`
}

// Search godoc
// @Summary 搜索科目
// @Description 标题模糊匹配，无结果时返回空列表
// @Tags 科目
// @Produce json
// @Security BearerAuth
// @Param search_query query string false "标题关键字"
// @Success 200 {object} util.Response{data=[]model.Subject}
// @Router /api/subjects [get]
func (c *SubjectController) Search(ctx *gin.Context) {
	subjects, err := c.QuizService.SearchSubjects(ctx.Request.Context(), util.GetIdentity(ctx), ctx.Query("search_query"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// FindOrCreate godoc
// @Summary 查找或创建科目
// @Description 复用标题完全相同的科目，否则新建
// @Tags 科目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FindOrCreateSubjectRequest true "科目标题"
// @Success 200 {object} util.Response{data=model.Subject}
// @Failure 400 {object} util.Response
// @Router /api/subjects [post]
func (c *SubjectController) FindOrCreate(ctx *gin.Context) {
	var req FindOrCreateSubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.QuizService.FindOrCreateSubject(ctx.Request.Context(), util.GetIdentity(ctx), req.Title)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}
