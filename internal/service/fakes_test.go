package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
)

// fakeQuizAPI 内存版远程测验服务
type fakeQuizAPI struct {
	mu sync.Mutex

	subjects      []model.Subject
	quizzes       map[model.RemoteID]*model.Quiz
	attempts      map[model.RemoteID]*model.AttemptRecord
	identities    map[string]*model.Identity
	taskResponses []*model.TaskStatusResponse
	taskID        string

	searchCalls    int
	createSubjects []string
	createQuizzes  []model.CreateQuizParams
	validateCalls  int
	nextAttempt    int

	createQuizErr error
	getAttemptErr error
	taskErr       error
	taskCalls     int

	// createQuizBlock 非 nil 时 CreateQuiz 会阻塞到关闭或 ctx 结束
	createQuizBlock chan struct{}
}

func newFakeQuizAPI() *fakeQuizAPI {
	return &fakeQuizAPI{
		quizzes:    make(map[model.RemoteID]*model.Quiz),
		attempts:   make(map[model.RemoteID]*model.AttemptRecord),
		identities: make(map[string]*model.Identity),
		taskID:     "task-1",
	}
}

func (f *fakeQuizAPI) ValidateToken(ctx context.Context, token string) (*model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	id, ok := f.identities[token]
	if !ok {
		return nil, &util.APIError{Operation: "validate_token", StatusCode: 401}
	}
	out := *id
	return &out, nil
}

func (f *fakeQuizAPI) SearchSubjects(ctx context.Context, token, query string) ([]model.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	var out []model.Subject
	for _, s := range f.subjects {
		if query == "" || containsFold(s.Title, query) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeQuizAPI) GetSubject(ctx context.Context, token string, id model.RemoteID) (*model.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subjects {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, &util.APIError{Operation: "get_subject", StatusCode: 404}
}

func (f *fakeQuizAPI) CreateSubject(ctx context.Context, token, title string) (model.RemoteID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := model.RemoteID(strconv.Itoa(100 + len(f.subjects)))
	f.subjects = append(f.subjects, model.Subject{ID: id, Title: title})
	f.createSubjects = append(f.createSubjects, title)
	return id, nil
}

func (f *fakeQuizAPI) CreateQuiz(ctx context.Context, token string, subjectID model.RemoteID, p model.CreateQuizParams) (string, error) {
	f.mu.Lock()
	block := f.createQuizBlock
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createQuizzes = append(f.createQuizzes, p)
	if f.createQuizErr != nil {
		return "", f.createQuizErr
	}
	return f.taskID, nil
}

func (f *fakeQuizAPI) TaskStatus(ctx context.Context, token, taskID string) (*model.TaskStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	if len(f.taskResponses) == 0 {
		return &model.TaskStatusResponse{}, nil
	}
	i := f.taskCalls
	if i >= len(f.taskResponses) {
		i = len(f.taskResponses) - 1
	}
	f.taskCalls++
	return f.taskResponses[i], nil
}

func (f *fakeQuizAPI) ListQuizzes(ctx context.Context, token string, filter model.QuizFilter) ([]model.QuizSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuizSummary
	for _, q := range f.quizzes {
		if filter.SubjectID != "" && q.SubjectID.String() != filter.SubjectID {
			continue
		}
		out = append(out, q.QuizSummary)
	}
	return out, nil
}

func (f *fakeQuizAPI) GetQuiz(ctx context.Context, token string, id model.RemoteID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, &util.APIError{Operation: "get_quiz", StatusCode: 404}
	}
	out := *q
	return &out, nil
}

func (f *fakeQuizAPI) DeleteQuiz(ctx context.Context, token string, id model.RemoteID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return &util.APIError{Operation: "delete_quiz", StatusCode: 404}
	}
	delete(f.quizzes, id)
	return nil
}

// CreateAttempt 与远程一致：整数除法计算百分比
func (f *fakeQuizAPI) CreateAttempt(ctx context.Context, token string, quizID model.RemoteID, answers []model.AttemptAnswer) (*model.AttemptCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quiz, ok := f.quizzes[quizID]
	if !ok {
		return nil, &util.APIError{Operation: "create_attempt", StatusCode: 404}
	}

	f.nextAttempt++
	record := &model.AttemptRecord{
		ID:                model.RemoteID(strconv.Itoa(f.nextAttempt)),
		QuizID:            quizID,
		SuccessPercentage: quiz.SuccessPercentage,
	}
	correct := 0
	for _, a := range answers {
		qid := model.RemoteID(strconv.FormatInt(a.QuestionID, 10))
		cid := model.RemoteID(strconv.FormatInt(a.ChoiceID, 10))
		isCorrect := false
		for _, q := range quiz.Questions {
			if q.ID == qid && q.CorrectChoice.ID == cid {
				isCorrect = true
			}
		}
		if isCorrect {
			correct++
		}
		record.AnsweredQuestions = append(record.AnsweredQuestions, model.AttemptAnswerRecord{QuestionID: qid, ChoiceID: cid, IsCorrect: isCorrect})
	}
	record.Result = correct * 100 / len(quiz.Questions)
	record.DidPass = record.Result >= quiz.SuccessPercentage
	f.attempts[record.ID] = record
	return &model.AttemptCreated{AttemptID: record.ID, Message: "Quiz attempt created successfully!"}, nil
}

func (f *fakeQuizAPI) GetAttempt(ctx context.Context, token string, quizID, attemptID model.RemoteID) (*model.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAttemptErr != nil {
		return nil, f.getAttemptErr
	}
	a, ok := f.attempts[attemptID]
	if !ok {
		return nil, &util.APIError{Operation: "get_attempt", StatusCode: 404}
	}
	out := *a
	return &out, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func testIdentity(id string) *model.Identity {
	return &model.Identity{ID: model.RemoteID(id), Name: "User " + id, Token: "token-" + id}
}

// sampleQuiz n 道题，每题三个选项，正确选项 id 为 q*10+1
func sampleQuiz(id string, n, threshold int) *model.Quiz {
	quiz := &model.Quiz{
		QuizSummary: model.QuizSummary{
			ID:                model.RemoteID(id),
			SubjectID:         "1",
			Title:             "Quiz " + id,
			SuccessPercentage: threshold,
			Duration:          600,
		},
	}
	for q := 1; q <= n; q++ {
		question := model.Question{
			ID:    model.RemoteID(strconv.Itoa(q)),
			Title: fmt.Sprintf("Question %d", q),
		}
		for c := 1; c <= 3; c++ {
			question.Choices = append(question.Choices, model.Choice{
				ID:    model.RemoteID(strconv.Itoa(q*10 + c)),
				Title: fmt.Sprintf("Choice %d", c),
			})
		}
		question.CorrectChoice = question.Choices[0]
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

func correctChoice(q int) model.RemoteID {
	return model.RemoteID(strconv.Itoa(q*10 + 1))
}

func wrongChoice(q int) model.RemoteID {
	return model.RemoteID(strconv.Itoa(q*10 + 2))
}

func pdfMaterial(name string) model.MaterialFile {
	return model.MaterialFile{Name: name, Data: []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")}
}

func validParams() model.CreateQuizParams {
	return model.CreateQuizParams{
		Subject:           model.SubjectRef{Title: "Biology"},
		Title:             "Cells",
		Duration:          10,
		NumberOfQuestions: 5,
		SuccessPercentage: 60,
		Files:             []model.MaterialFile{pdfMaterial("cells.pdf")},
	}
}
