package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quizgen_gateway/internal/config"
	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/monitoring"
	"quizgen_gateway/pkg/tracing"

	"golang.org/x/time/rate"
)

const maxErrorBody = 4 << 10

// DefaultAttemptPath 单次作答详情路径模板
const DefaultAttemptPath = "/quizzing/quizzes/{quizId}/attempts/{attemptId}"

// QuizAPIClient 远程测验服务客户端
type QuizAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	attemptPath string
}

type ClientOption func(*QuizAPIClient)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *QuizAPIClient) {
		c.httpClient = hc
	}
}

func NewQuizAPIClient(cfg config.APIConfig, opts ...ClientOption) *QuizAPIClient {
	limit := rate.Inf
	if cfg.MaxRPS > 0 {
		limit = rate.Limit(cfg.MaxRPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &QuizAPIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout(),
			Transport: tracing.NewTransport(http.DefaultTransport),
		},
		limiter:     rate.NewLimiter(limit, burst),
		attemptPath: cfg.AttemptPath,
	}
	if c.attemptPath == "" {
		c.attemptPath = DefaultAttemptPath
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	op          string
	method      string
	path        string
	token       string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *QuizAPIClient) do(ctx context.Context, r request, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrRemote, r.op, err)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		monitoring.ObserveRemote(r.op, 0, started)
		return fmt.Errorf("%w: %s: %w", util.ErrRemote, r.op, err)
	}
	defer resp.Body.Close()
	monitoring.ObserveRemote(r.op, resp.StatusCode, started)

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &util.APIError{
			Operation:  r.op,
			StatusCode: resp.StatusCode,
			Message:    remoteErrorMessage(body),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", util.ErrRemote, r.op, err)
	}
	return nil
}

// remoteErrorMessage 远程错误体为 {"error"} 或 {"message"}
func remoteErrorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Error, payload.Message, payload.Msg} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func jsonBody(v interface{}) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func (c *QuizAPIClient) ValidateToken(ctx context.Context, token string) (*model.Identity, error) {
	var id model.Identity
	err := c.do(ctx, request{op: "validate_token", method: http.MethodGet, path: "/auth/validate", token: token}, &id)
	if err != nil {
		return nil, err
	}
	id.Token = token
	return &id, nil
}

func (c *QuizAPIClient) SearchSubjects(ctx context.Context, token, query string) ([]model.Subject, error) {
	q := url.Values{}
	if query != "" {
		q.Set("search_query", query)
	}
	subjects := []model.Subject{}
	err := c.do(ctx, request{op: "search_subjects", method: http.MethodGet, path: "/quizzing/subjects", token: token, query: q}, &subjects)
	if err != nil {
		return nil, err
	}
	return subjects, nil
}

func (c *QuizAPIClient) GetSubject(ctx context.Context, token string, id model.RemoteID) (*model.Subject, error) {
	var s model.Subject
	err := c.do(ctx, request{op: "get_subject", method: http.MethodGet, path: "/quizzing/subjects/" + url.PathEscape(id.String()), token: token}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *QuizAPIClient) CreateSubject(ctx context.Context, token, title string) (model.RemoteID, error) {
	body, err := jsonBody(map[string]string{"title": title})
	if err != nil {
		return "", err
	}
	var out struct {
		SubjectID model.RemoteID `json:"subject_id"`
	}
	err = c.do(ctx, request{
		op: "create_subject", method: http.MethodPost, path: "/quizzing/subjects", token: token,
		body: body, contentType: "application/json",
	}, &out)
	if err != nil {
		return "", err
	}
	if out.SubjectID.IsZero() {
		return "", fmt.Errorf("%w: create_subject: response has no subject_id", util.ErrRemote)
	}
	return out.SubjectID, nil
}

// CreateQuiz multipart 提交，duration 以秒为单位，文件字段重复为 file
func (c *QuizAPIClient) CreateQuiz(ctx context.Context, token string, subjectID model.RemoteID, p model.CreateQuizParams) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"subject_id", subjectID.String()},
		{"title", p.Title},
		{"success_percentage", strconv.Itoa(p.SuccessPercentage)},
		{"description", p.Description},
		{"duration", strconv.Itoa(p.Duration * 60)},
		{"number_of_questions", strconv.Itoa(p.NumberOfQuestions)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	for _, f := range p.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, util.SafeFilename(f.Name)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var out struct {
		TaskID string `json:"task_id"`
	}
	err := c.do(ctx, request{
		op: "create_quiz", method: http.MethodPost, path: "/quizzing/quizzes", token: token,
		body: &buf, contentType: w.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("%w: create_quiz: response has no task_id", util.ErrRemote)
	}
	return out.TaskID, nil
}

func (c *QuizAPIClient) TaskStatus(ctx context.Context, token, taskID string) (*model.TaskStatusResponse, error) {
	var out model.TaskStatusResponse
	err := c.do(ctx, request{op: "task_status", method: http.MethodGet, path: "/tasks/result/" + url.PathEscape(taskID), token: token}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *QuizAPIClient) ListQuizzes(ctx context.Context, token string, filter model.QuizFilter) ([]model.QuizSummary, error) {
	q := url.Values{}
	if filter.SearchQuery != "" {
		q.Set("search_query", filter.SearchQuery)
	}
	if filter.SubjectID != "" {
		q.Set("subject_id", filter.SubjectID)
	}
	quizzes := []model.QuizSummary{}
	err := c.do(ctx, request{op: "list_quizzes", method: http.MethodGet, path: "/quizzing/quizzes", token: token, query: q}, &quizzes)
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// GetQuiz 返回含科目标题的测验，题目转换为 Question 并校验正确答案
func (c *QuizAPIClient) GetQuiz(ctx context.Context, token string, id model.RemoteID) (*model.Quiz, error) {
	var raw model.RemoteQuiz
	err := c.do(ctx, request{op: "get_quiz", method: http.MethodGet, path: "/quizzing/quizzes/" + url.PathEscape(id.String()), token: token}, &raw)
	if err != nil {
		return nil, err
	}

	questions, err := ConvertQuestions(raw.Questions)
	if err != nil {
		return nil, fmt.Errorf("%w: quiz %s: %w", util.ErrRemote, id, err)
	}

	subject, err := c.GetSubject(ctx, token, raw.SubjectID)
	if err != nil {
		return nil, err
	}

	return &model.Quiz{
		QuizSummary:  raw.QuizSummary,
		SubjectTitle: subject.Title,
		Questions:    questions,
	}, nil
}

func ConvertQuestions(raw []model.RemoteQuestion) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(raw))
	for _, rq := range raw {
		q := model.Question{ID: rq.ID, Title: rq.Title, Choices: make([]model.Choice, 0, len(rq.Answers))}
		correct := 0
		for _, a := range rq.Answers {
			choice := model.Choice{ID: a.ID, Title: a.Title}
			q.Choices = append(q.Choices, choice)
			if a.IsCorrect {
				q.CorrectChoice = choice
				correct++
			}
		}
		if correct != 1 {
			return nil, fmt.Errorf("%w: question %s has %d correct answers", model.ErrInvalidQuestion, rq.ID, correct)
		}
		if err := q.Validate(); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (c *QuizAPIClient) DeleteQuiz(ctx context.Context, token string, id model.RemoteID) error {
	return c.do(ctx, request{op: "delete_quiz", method: http.MethodDelete, path: "/quizzing/quizzes/" + url.PathEscape(id.String()), token: token}, nil)
}

func (c *QuizAPIClient) CreateAttempt(ctx context.Context, token string, quizID model.RemoteID, answers []model.AttemptAnswer) (*model.AttemptCreated, error) {
	body, err := jsonBody(map[string]interface{}{"answered_questions": answers})
	if err != nil {
		return nil, err
	}
	var out model.AttemptCreated
	err = c.do(ctx, request{
		op: "create_attempt", method: http.MethodPost,
		path:  "/quizzing/quizzes/" + url.PathEscape(quizID.String()) + "/attempt",
		token: token, body: body, contentType: "application/json",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.AttemptID.IsZero() {
		return nil, fmt.Errorf("%w: create_attempt: response has no attempt_id", util.ErrRemote)
	}
	return &out, nil
}

func (c *QuizAPIClient) GetAttempt(ctx context.Context, token string, quizID, attemptID model.RemoteID) (*model.AttemptRecord, error) {
	var out model.AttemptRecord
	err := c.do(ctx, request{
		op: "get_attempt", method: http.MethodGet,
		path: strings.NewReplacer(
			"{quizId}", url.PathEscape(quizID.String()),
			"{attemptId}", url.PathEscape(attemptID.String()),
		).Replace(c.attemptPath),
		token: token,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

