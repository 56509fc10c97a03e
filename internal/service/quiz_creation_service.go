package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const responseCodeTooShort = "too-short"

var partialGenerationPattern = regexp.MustCompile(`(\d+) questions? could not be generated`)

// SubjectAPI 科目查找与创建
type SubjectAPI interface {
	SearchSubjects(ctx context.Context, token, query string) ([]model.Subject, error)
	GetSubject(ctx context.Context, token string, id model.RemoteID) (*model.Subject, error)
	CreateSubject(ctx context.Context, token, title string) (model.RemoteID, error)
}

type CreationAPI interface {
	SubjectAPI
	CreateQuiz(ctx context.Context, token string, subjectID model.RemoteID, p model.CreateQuizParams) (string, error)
	TaskStatus(ctx context.Context, token, taskID string) (*model.TaskStatusResponse, error)
}

// QuizCreationService 校验、科目解析、提交以及任务结果分类
type QuizCreationService struct {
	api          CreationAPI
	validate     *validator.Validate
	exposeDetail bool
}

func NewQuizCreationService(api CreationAPI, exposeDetail bool) *QuizCreationService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name[:1]) + f.Name[1:]
		}
		return name
	})
	return &QuizCreationService{api: api, validate: v, exposeDetail: exposeDetail}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return "must not be empty"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// fieldPath 去掉根结构名，如 CreateQuizParams.files[0].name -> files[0].name
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Validate 在任何网络请求之前执行，返回 *util.ValidationError
func (s *QuizCreationService) Validate(p *model.CreateQuizParams) error {
	return s.validateInto(p, &util.ValidationError{}).OrNil()
}

func (s *QuizCreationService) validateInto(p *model.CreateQuizParams, verr *util.ValidationError) *util.ValidationError {
	p.Title = strings.TrimSpace(p.Title)
	p.Subject.Title = strings.TrimSpace(p.Subject.Title)
	p.Subject.ID = model.RemoteID(strings.TrimSpace(p.Subject.ID.String()))

	reported := make(map[string]bool, len(verr.Fields))
	for _, f := range verr.Fields {
		reported[f.Field] = true
	}

	if err := s.validate.Struct(p); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			verr.Add("params", "invalid", err.Error())
			return verr
		}
		for _, fe := range errs {
			field := fieldPath(fe)
			if reported[field] {
				continue
			}
			reported[field] = true
			verr.Add(field, fe.Tag(), fieldMessage(fe))
		}
	}

	for i := range p.Files {
		f := &p.Files[i]
		if f.Name == "" || len(f.Data) == 0 {
			continue
		}
		ct, err := util.DetectMaterialType(f.Name, f.Data)
		if err != nil {
			verr.Add(fmt.Sprintf("files[%d]", i), "pdf", "must be a PDF document")
			continue
		}
		f.ContentType = ct
	}
	return verr
}

// BuildCreateQuizParams 解析表单数值并校验，所有问题一次性返回
func (s *QuizCreationService) BuildCreateQuizParams(form model.CreateQuizForm, files []model.MaterialFile) (model.CreateQuizParams, error) {
	verr := &util.ValidationError{}
	number := func(field, raw string) int {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			verr.Add(field, "numeric", "must be a number")
			return 0
		}
		return n
	}

	p := model.CreateQuizParams{
		Subject:           model.SubjectRef{ID: model.RemoteID(form.SubjectID), Title: form.SubjectTitle},
		Title:             form.Title,
		Duration:          number("duration", form.Duration),
		NumberOfQuestions: number("numberOfQuestions", form.NumberOfQuestions),
		SuccessPercentage: number("successPercentage", form.SuccessPercentage),
		Description:       form.Description,
		Files:             files,
	}
	return p, s.validateInto(&p, verr).OrNil()
}

// ResolveSubject 优先使用已有 id；否则复用标题完全相同的科目，找不到则创建
func (s *QuizCreationService) ResolveSubject(ctx context.Context, identity *model.Identity, ref model.SubjectRef) (model.RemoteID, error) {
	if !ref.ID.IsZero() {
		return ref.ID, nil
	}
	title := strings.TrimSpace(ref.Title)
	if title == "" {
		verr := &util.ValidationError{}
		verr.Add("subject.title", "required", "is required")
		return "", verr
	}

	subjects, err := s.api.SearchSubjects(ctx, identity.Token, title)
	if err != nil {
		return "", err
	}
	for _, subject := range subjects {
		if subject.Title == title {
			return subject.ID, nil
		}
	}

	id, err := s.api.CreateSubject(ctx, identity.Token, title)
	if err != nil {
		return "", err
	}
	logger.Log.Info("Subject created", zap.String("subjectId", id.String()), zap.String("owner", identity.ID.String()))
	return id, nil
}

// Submit 校验、解析科目并提交生成任务，返回任务 id 与科目 id
func (s *QuizCreationService) Submit(ctx context.Context, identity *model.Identity, p model.CreateQuizParams) (string, model.RemoteID, error) {
	if err := s.Validate(&p); err != nil {
		return "", "", err
	}

	subjectID, err := s.ResolveSubject(ctx, identity, p.Subject)
	if err != nil {
		return "", "", err
	}

	taskID, err := s.api.CreateQuiz(ctx, identity.Token, subjectID, p)
	if err != nil {
		return "", subjectID, err
	}
	logger.Log.Info("Quiz generation submitted",
		zap.String("taskId", taskID),
		zap.String("subjectId", subjectID.String()),
		zap.Int("files", len(p.Files)))
	return taskID, subjectID, nil
}

func (s *QuizCreationService) detail(msg string) string {
	if s.exposeDetail {
		return msg
	}
	return ""
}

// Interpret 按顺序判断：资料过短、部分生成、创建成功，否则视为服务端错误
func (s *QuizCreationService) Interpret(value json.RawMessage) model.CreationOutcome {
	var v model.TaskValue
	if err := json.Unmarshal(value, &v); err != nil {
		return model.CreationOutcome{
			Kind:    model.OutcomeServerError,
			Message: "Quiz creation returned an unreadable result",
			Detail:  s.detail(err.Error()),
		}
	}

	code := v.ResponseCode
	responseMessage := ""
	if v.Details != nil {
		if code == "" {
			code = v.Details.ResponseCode
		}
		responseMessage = v.Details.ResponseMessage
	}

	if code == responseCodeTooShort {
		return model.CreationOutcome{
			Kind:    model.OutcomeMaterialTooShort,
			Message: "The study material is too short to generate a quiz",
			Detail:  s.detail(responseMessage),
		}
	}

	for _, msg := range []string{v.Message, responseMessage} {
		m := partialGenerationPattern.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		return model.CreationOutcome{
			Kind:             model.OutcomePartial,
			QuizID:           v.QuizID,
			UngeneratedCount: n,
			Message:          fmt.Sprintf("Quiz created, but %d questions could not be generated", n),
		}
	}

	if v.QuizID.IsZero() {
		detail := v.Message
		if responseMessage != "" {
			detail = strings.TrimSpace(detail + ": " + responseMessage)
		}
		return model.CreationOutcome{
			Kind:    model.OutcomeServerError,
			Message: "Quiz creation failed",
			Detail:  s.detail(detail),
		}
	}

	return model.CreationOutcome{
		Kind:    model.OutcomeCreated,
		QuizID:  v.QuizID,
		Message: "Quiz created successfully",
	}
}

// InterpretFailure 任务失败；原始信息仅在非生产模式下返回
func (s *QuizCreationService) InterpretFailure(message string) model.CreationOutcome {
	return model.CreationOutcome{
		Kind:    model.OutcomeServerError,
		Message: "Quiz creation failed on the server",
		Detail:  s.detail(message),
	}
}

func (s *QuizCreationService) InterpretResult(r model.TaskResult) model.CreationOutcome {
	switch r.Kind {
	case model.TaskSucceeded:
		return s.Interpret(r.Value)
	case model.TaskFailed:
		return s.InterpretFailure(r.Message)
	case model.TaskTimedOut:
		return model.CreationOutcome{Kind: model.OutcomeTimedOut, Message: "Quiz creation is taking too long"}
	default:
		return model.CreationOutcome{Kind: model.OutcomeCancelled, Message: "Quiz creation was cancelled"}
	}
}
