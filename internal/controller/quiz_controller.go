package controller

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/service"
	"quizgen_gateway/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
	Creation    *service.QuizCreationService
	Jobs        *service.CreationJobService
}

func NewQuizController(quizService *service.QuizService, creation *service.QuizCreationService, jobs *service.CreationJobService) *QuizController {
	return &QuizController{QuizService: quizService, Creation: creation, Jobs: jobs}
}

// List godoc
// @Summary 测验列表
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param search_query query string false "标题或描述关键字"
// @Param subject_id query string false "科目ID"
// @Success 200 {object} util.Response{data=[]model.QuizSummary}
// @Router /api/quizzes [get]
func (c *QuizController) List(ctx *gin.Context) {
	var filter model.QuizFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quizzes, err := c.QuizService.ListQuizzes(ctx.Request.Context(), util.GetIdentity(ctx), filter)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// Get godoc
// @Summary 测验详情
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), util.GetIdentity(ctx), model.RemoteID(ctx.Param("id")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// Delete godoc
// @Summary 删除测验
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), util.GetIdentity(ctx), model.RemoteID(ctx.Param("id"))); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func readMaterial(fh *multipart.FileHeader) (model.MaterialFile, error) {
	f, err := fh.Open()
	if err != nil {
		return model.MaterialFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.MaterialFile{}, err
	}
	return model.MaterialFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// Create godoc
// @Summary 生成测验
// @Description 上传学习资料（PDF，可多个 file 字段），异步生成测验，返回 job
// @Tags 测验
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param subject_id formData string false "已有科目ID"
// @Param subject_title formData string false "科目标题（无科目ID时必填）"
// @Param title formData string true "标题"
// @Param duration formData int true "时长（分钟）"
// @Param number_of_questions formData int true "题目数量"
// @Param success_percentage formData int true "及格百分比"
// @Param description formData string false "描述"
// @Param file formData file true "学习资料"
// @Success 202 {object} util.Response{data=model.CreationJob}
// @Failure 400 {object} util.Response
// @Router /api/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, util.MaxMaterialSize)

	var form model.CreateQuizForm
	if err := ctx.ShouldBind(&form); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			util.Error(ctx, http.StatusRequestEntityTooLarge, "study material too large")
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}

	var files []model.MaterialFile
	if mf, err := ctx.MultipartForm(); err == nil {
		for _, fh := range mf.File["file"] {
			m, err := readMaterial(fh)
			if err != nil {
				util.BadRequest(ctx, "failed to read uploaded file")
				return
			}
			files = append(files, m)
		}
	}

	params, err := c.Creation.BuildCreateQuizParams(form, files)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	job, err := c.Jobs.Start(util.GetIdentity(ctx), params)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Accepted(ctx, job)
}

// GetJob godoc
// @Summary 生成任务状态
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param jobId path string true "任务ID"
// @Success 200 {object} util.Response{data=model.CreationJob}
// @Failure 404 {object} util.Response
// @Router /api/quiz-jobs/{jobId} [get]
func (c *QuizController) GetJob(ctx *gin.Context) {
	job, err := c.Jobs.Get(util.GetIdentity(ctx).ID, ctx.Param("jobId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, job)
}

// CancelJob godoc
// @Summary 取消生成
// @Description 停止轮询，之后到达的结果被丢弃
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param jobId path string true "任务ID"
// @Success 200 {object} util.Response{data=model.CreationJob}
// @Router /api/quiz-jobs/{jobId} [delete]
func (c *QuizController) CancelJob(ctx *gin.Context) {
	job, err := c.Jobs.Cancel(util.GetIdentity(ctx).ID, ctx.Param("jobId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, job)
}

// StreamJob godoc
// @Summary 订阅生成进度
// @Description WebSocket，推送 job 快照直到终态
// @Tags 测验
// @Security BearerAuth
// @Param jobId path string true "任务ID"
// @Router /api/quiz-jobs/{jobId}/ws [get]
func (c *QuizController) StreamJob(ctx *gin.Context) {
	jobID := ctx.Param("jobId")
	updates, unsubscribe, err := c.Jobs.Subscribe(util.GetIdentity(ctx).ID, jobID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	service.ServeJobStream(ctx.Writer, ctx.Request, jobID, updates, unsubscribe)
}
