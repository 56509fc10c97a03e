package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
	"quizgen_gateway/pkg/logger"

	"go.uber.org/zap"
)

// Percentage 四舍五入（远离零），空题目为 0
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// ScoringEngine 纯函数评分
type ScoringEngine struct{}

func (ScoringEngine) Score(questions []model.AnsweredQuestion, threshold int) model.QuizResult {
	correct := 0
	for _, q := range questions {
		if q.Correct() {
			correct++
		}
	}
	pct := Percentage(correct, len(questions))
	return model.QuizResult{
		Score:      correct,
		Total:      len(questions),
		Percentage: pct,
		Threshold:  threshold,
		Passed:     pct >= threshold,
	}
}

type ScoreRequest struct {
	Identity  *model.Identity
	QuizID    model.RemoteID
	Questions []model.AnsweredQuestion
	Threshold int
}

type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (model.QuizResult, error)
}

type LocalScorer struct {
	engine ScoringEngine
	now    func() time.Time
}

func NewLocalScorer() *LocalScorer {
	return &LocalScorer{now: time.Now}
}

func (s *LocalScorer) Score(ctx context.Context, req ScoreRequest) (model.QuizResult, error) {
	r := s.engine.Score(req.Questions, req.Threshold)
	r.AttemptID = model.RemoteID("local-" + model.GenerateUUID())
	r.QuizID = req.QuizID
	r.ScoredBy = model.ScoredLocal
	r.CreatedAt = s.now()
	return r, nil
}

type AttemptAPI interface {
	CreateAttempt(ctx context.Context, token string, quizID model.RemoteID, answers []model.AttemptAnswer) (*model.AttemptCreated, error)
	GetAttempt(ctx context.Context, token string, quizID, attemptID model.RemoteID) (*model.AttemptRecord, error)
}

// RemoteScorer 远程创建 attempt，远程给出的百分比与是否通过为准
type RemoteScorer struct {
	api   AttemptAPI
	local *LocalScorer
}

func NewRemoteScorer(api AttemptAPI) *RemoteScorer {
	return &RemoteScorer{api: api, local: NewLocalScorer()}
}

func AttemptAnswers(questions []model.AnsweredQuestion) ([]model.AttemptAnswer, error) {
	answers := make([]model.AttemptAnswer, 0, len(questions))
	for _, q := range questions {
		if q.SelectedChoice == nil {
			return nil, util.ErrUnansweredQuestions
		}
		qid, err := q.ID.Int()
		if err != nil {
			return nil, fmt.Errorf("%w: question id %q", util.ErrInvalidArgument, q.ID)
		}
		cid, err := q.SelectedChoice.ID.Int()
		if err != nil {
			return nil, fmt.Errorf("%w: choice id %q", util.ErrInvalidArgument, q.SelectedChoice.ID)
		}
		answers = append(answers, model.AttemptAnswer{QuestionID: qid, ChoiceID: cid})
	}
	return answers, nil
}

func (s *RemoteScorer) Score(ctx context.Context, req ScoreRequest) (model.QuizResult, error) {
	if req.Identity == nil {
		return model.QuizResult{}, util.ErrUnauthorized
	}
	answers, err := AttemptAnswers(req.Questions)
	if err != nil {
		return model.QuizResult{}, err
	}

	created, err := s.api.CreateAttempt(ctx, req.Identity.Token, req.QuizID, answers)
	if err != nil {
		return model.QuizResult{}, err
	}

	record, err := s.api.GetAttempt(ctx, req.Identity.Token, req.QuizID, created.AttemptID)
	if err != nil {
		// attempt 已在远程保存，本地计算结果返回给用户
		logger.Log.Warn("Failed to fetch remote attempt, scoring locally",
			zap.String("quizId", req.QuizID.String()),
			zap.String("attemptId", created.AttemptID.String()),
			zap.Error(err))
		r, _ := s.local.Score(ctx, req)
		r.AttemptID = created.AttemptID
		return r, nil
	}

	return ResultFromAttempt(record, len(req.Questions), s.local.now()), nil
}

func ResultFromAttempt(record *model.AttemptRecord, total int, createdAt time.Time) model.QuizResult {
	correct := 0
	for _, a := range record.AnsweredQuestions {
		if a.IsCorrect {
			correct++
		}
	}
	if total == 0 {
		total = len(record.AnsweredQuestions)
	}
	return model.QuizResult{
		AttemptID:  record.ID,
		QuizID:     record.QuizID,
		Score:      correct,
		Total:      total,
		Percentage: record.Result,
		Threshold:  record.SuccessPercentage,
		Passed:     record.DidPass,
		ScoredBy:   model.ScoredRemote,
		CreatedAt:  createdAt,
	}
}
