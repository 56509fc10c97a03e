package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/repository"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"
	"quizgen_gateway/pkg/monitoring"

	"go.uber.org/zap"
)

const (
	ScorerLocal  = "local"
	ScorerRemote = "remote"
)

type QuizReader interface {
	GetQuiz(ctx context.Context, token string, id model.RemoteID) (*model.Quiz, error)
}

// keyedMutex 按会话 id 串行化
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

type ExamService struct {
	quizzes       QuizReader
	repo          repository.SessionRepository
	scorers       map[string]Scorer
	defaultScorer string
	results       *ResultService
	pageSize      int
	locks         keyedMutex
}

func NewExamService(quizzes QuizReader, repo repository.SessionRepository, local, remote Scorer, defaultScorer string, results *ResultService, pageSize int) *ExamService {
	if defaultScorer == "" {
		defaultScorer = ScorerRemote
	}
	return &ExamService{
		quizzes:       quizzes,
		repo:          repo,
		scorers:       map[string]Scorer{ScorerLocal: local, ScorerRemote: remote},
		defaultScorer: defaultScorer,
		results:       results,
		pageSize:      pageSize,
	}
}

func (s *ExamService) Start(ctx context.Context, identity *model.Identity, quizID model.RemoteID) (*model.ExamView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, identity.Token, quizID)
	if err != nil {
		return nil, err
	}
	session, err := NewExamSession(identity.ID, quiz, s.pageSize)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, session.Snapshot()); err != nil {
		return nil, err
	}
	logger.Log.Info("Exam session started",
		zap.String("sessionId", session.ID()),
		zap.String("quizId", quizID.String()),
		zap.Int("questions", session.Len()))
	view := session.View()
	return &view, nil
}

func (s *ExamService) load(ctx context.Context, identity *model.Identity, sessionID string) (*ExamSession, error) {
	snap, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap.OwnerID != identity.ID {
		return nil, util.ErrNotFound
	}
	return RestoreExamSession(snap)
}

// mutate 在会话锁内加载、修改并保存
func (s *ExamService) mutate(ctx context.Context, identity *model.Identity, sessionID string, fn func(*ExamSession) error) (*model.ExamView, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, session.Snapshot()); err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

func (s *ExamService) Get(ctx context.Context, identity *model.Identity, sessionID string) (*model.ExamView, error) {
	session, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

func (s *ExamService) SelectChoice(ctx context.Context, identity *model.Identity, sessionID string, questionIndex int, choiceID model.RemoteID) (*model.ExamView, error) {
	return s.mutate(ctx, identity, sessionID, func(e *ExamSession) error {
		return e.SelectChoice(questionIndex, choiceID)
	})
}

func (s *ExamService) GoTo(ctx context.Context, identity *model.Identity, sessionID string, index int) (*model.ExamView, error) {
	return s.mutate(ctx, identity, sessionID, func(e *ExamSession) error {
		return e.GoTo(index)
	})
}

func (s *ExamService) Next(ctx context.Context, identity *model.Identity, sessionID string) (*model.ExamView, error) {
	return s.mutate(ctx, identity, sessionID, (*ExamSession).Next)
}

func (s *ExamService) Previous(ctx context.Context, identity *model.Identity, sessionID string) (*model.ExamView, error) {
	return s.mutate(ctx, identity, sessionID, (*ExamSession).Previous)
}

func (s *ExamService) Paginate(ctx context.Context, identity *model.Identity, sessionID string, direction int) (*model.ExamView, error) {
	return s.mutate(ctx, identity, sessionID, func(e *ExamSession) error {
		return e.Paginate(direction)
	})
}

// Submit 评分成功后删除会话并记录成绩；失败时会话保持可继续作答
func (s *ExamService) Submit(ctx context.Context, identity *model.Identity, sessionID, mode string) (*model.QuizResult, error) {
	if mode == "" {
		mode = s.defaultScorer
	}
	scorer, ok := s.scorers[mode]
	if !ok || scorer == nil {
		return nil, fmt.Errorf("%w: unknown scorer %q", util.ErrInvalidArgument, mode)
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	result, err := session.Submit(ctx, scorer, identity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		logger.Log.Warn("Failed to delete submitted exam session", zap.String("sessionId", sessionID), zap.Error(err))
	}
	s.results.Record(ctx, identity, session.QuizTitle(), result)

	monitoring.ExamSubmissions.WithLabelValues(string(result.ScoredBy), strconv.FormatBool(result.Passed)).Inc()
	logger.Log.Info("Exam submitted",
		zap.String("sessionId", sessionID),
		zap.String("quizId", result.QuizID.String()),
		zap.String("attemptId", result.AttemptID.String()),
		zap.Int("percentage", result.Percentage),
		zap.Bool("passed", result.Passed),
		zap.String("scoredBy", string(result.ScoredBy)))
	return &result, nil
}

func (s *ExamService) Discard(ctx context.Context, identity *model.Identity, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if _, err := s.load(ctx, identity, sessionID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, sessionID)
}
