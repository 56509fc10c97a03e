package service

import (
	"context"
	"strings"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/pkg/logger"

	"go.uber.org/zap"
)

type QuizCatalogAPI interface {
	QuizReader
	ListQuizzes(ctx context.Context, token string, filter model.QuizFilter) ([]model.QuizSummary, error)
	DeleteQuiz(ctx context.Context, token string, id model.RemoteID) error
	SearchSubjects(ctx context.Context, token, query string) ([]model.Subject, error)
}

// QuizService 测验与科目的查询、删除
type QuizService struct {
	api      QuizCatalogAPI
	creation *QuizCreationService
}

func NewQuizService(api QuizCatalogAPI, creation *QuizCreationService) *QuizService {
	return &QuizService{api: api, creation: creation}
}

func (s *QuizService) ListQuizzes(ctx context.Context, identity *model.Identity, filter model.QuizFilter) ([]model.QuizSummary, error) {
	quizzes, err := s.api.ListQuizzes(ctx, identity.Token, filter)
	if err != nil {
		return nil, err
	}
	if quizzes == nil {
		quizzes = []model.QuizSummary{}
	}
	return quizzes, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, identity *model.Identity, id model.RemoteID) (*model.Quiz, error) {
	return s.api.GetQuiz(ctx, identity.Token, id)
}

func (s *QuizService) DeleteQuiz(ctx context.Context, identity *model.Identity, id model.RemoteID) error {
	if err := s.api.DeleteQuiz(ctx, identity.Token, id); err != nil {
		return err
	}
	logger.Log.Info("Quiz deleted", zap.String("quizId", id.String()), zap.String("owner", identity.ID.String()))
	return nil
}

// SearchSubjects 没有结果时返回空列表
func (s *QuizService) SearchSubjects(ctx context.Context, identity *model.Identity, query string) ([]model.Subject, error) {
	subjects, err := s.api.SearchSubjects(ctx, identity.Token, query)
	if err != nil {
		return nil, err
	}
	if subjects == nil {
		subjects = []model.Subject{}
	}
	return subjects, nil
}

func (s *QuizService) FindOrCreateSubject(ctx context.Context, identity *model.Identity, title string) (*model.Subject, error) {
	title = strings.TrimSpace(title)
	id, err := s.creation.ResolveSubject(ctx, identity, model.SubjectRef{Title: title})
	if err != nil {
		return nil, err
	}
	return &model.Subject{ID: id, Title: title}, nil
}
