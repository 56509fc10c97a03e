package service

import (
	"context"
	"errors"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/repository"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"

	"go.uber.org/zap"
)

type ResultAPI interface {
	QuizReader
	GetAttempt(ctx context.Context, token string, quizID, attemptID model.RemoteID) (*model.AttemptRecord, error)
}

// ResultHistory 本地成绩存储
type ResultHistory interface {
	Create(record *model.QuizResultRecord) error
	ListByOwner(ownerID string, quizID string, limit, offset int) ([]model.QuizResultRecord, int64, error)
	FindByAttempt(ownerID, attemptID string) (*model.QuizResultRecord, error)
}

var _ ResultHistory = (*repository.ResultRepository)(nil)

type ResultService struct {
	api     ResultAPI
	history ResultHistory
}

// NewResultService history 为 nil 时不记录本地历史
func NewResultService(api ResultAPI, history ResultHistory) *ResultService {
	return &ResultService{api: api, history: history}
}

func (s *ResultService) Record(ctx context.Context, identity *model.Identity, quizTitle string, r model.QuizResult) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(model.NewQuizResultRecord(identity.ID, quizTitle, r)); err != nil {
		logger.Log.Error("Failed to record quiz result",
			zap.String("attemptId", r.AttemptID.String()),
			zap.Error(err))
	}
}

type HistoryPage struct {
	List  []model.QuizResultRecord `json:"list"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

func (s *ResultService) History(identity *model.Identity, quizID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out := &HistoryPage{List: []model.QuizResultRecord{}, Page: page, Limit: limit}
	if s.history == nil {
		return out, nil
	}
	records, total, err := s.history.ListByOwner(identity.ID.String(), quizID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if records != nil {
		out.List = records
	}
	out.Total = total
	return out, nil
}

// ResultPage 远程 attempt 与测验题目合并为逐题回顾
func (s *ResultService) ResultPage(ctx context.Context, identity *model.Identity, quizID, attemptID model.RemoteID) (*model.ResultPage, error) {
	attempt, err := s.api.GetAttempt(ctx, identity.Token, quizID, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.QuizID.IsZero() && attempt.QuizID != quizID {
		return nil, util.ErrNotFound
	}
	quiz, err := s.api.GetQuiz(ctx, identity.Token, quizID)
	if err != nil {
		return nil, err
	}

	var createdAt time.Time
	if s.history != nil {
		rec, err := s.history.FindByAttempt(identity.ID.String(), attemptID.String())
		switch {
		case err == nil:
			createdAt = rec.CreatedAt
		case !errors.Is(err, util.ErrNotFound):
			logger.Log.Warn("Failed to load local result record", zap.String("attemptId", attemptID.String()), zap.Error(err))
		}
	}

	return &model.ResultPage{
		Quiz:    quiz.QuizSummary,
		Result:  ResultFromAttempt(attempt, len(quiz.Questions), createdAt),
		Reviews: MergeReviews(quiz.Questions, attempt.AnsweredQuestions),
	}, nil
}

func MergeReviews(questions []model.Question, answers []model.AttemptAnswerRecord) []model.QuestionReview {
	byQuestion := make(map[model.RemoteID]model.AttemptAnswerRecord, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	reviews := make([]model.QuestionReview, 0, len(questions))
	for _, q := range questions {
		r := model.QuestionReview{
			QuestionID:      q.ID,
			Title:           q.Title,
			Choices:         viewChoices(q.Choices),
			CorrectChoiceID: q.CorrectChoice.ID,
		}
		if a, ok := byQuestion[q.ID]; ok {
			r.SelectedChoiceID = a.ChoiceID
			r.IsCorrect = a.IsCorrect
		}
		reviews = append(reviews, r)
	}
	return reviews
}
