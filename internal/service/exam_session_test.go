package service

import (
	"context"
	"errors"
	"testing"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	calls  int
	err    error
	result model.QuizResult
}

func (s *stubScorer) Score(ctx context.Context, req ScoreRequest) (model.QuizResult, error) {
	s.calls++
	if s.err != nil {
		return model.QuizResult{}, s.err
	}
	return s.result, nil
}

func newSession(t *testing.T, n, pageSize int) *ExamSession {
	t.Helper()
	s, err := NewExamSession("1", sampleQuiz("7", n, 50), pageSize)
	require.NoError(t, err)
	return s
}

func answerAll(t *testing.T, s *ExamSession) {
	t.Helper()
	for i := 0; i < s.Len(); i++ {
		require.NoError(t, s.SelectChoice(i, correctChoice(i+1)))
	}
}

func TestNewExamSession_RejectsInvalidQuiz(t *testing.T) {
	_, err := NewExamSession("1", &model.Quiz{}, 30)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	quiz := sampleQuiz("7", 2, 101)
	_, err = NewExamSession("1", quiz, 30)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	quiz = sampleQuiz("7", 2, 50)
	quiz.Questions[1].CorrectChoice = model.Choice{ID: "999"}
	_, err = NewExamSession("1", quiz, 30)
	assert.ErrorIs(t, err, model.ErrInvalidQuestion)
}

func TestExamSession_InitialState(t *testing.T) {
	s := newSession(t, 3, 0)

	assert.Equal(t, 0, s.Current())
	assert.Equal(t, 0, s.Page())
	assert.Equal(t, model.ExamAnswering, s.State())
	assert.Equal(t, []int{0, 1, 2}, s.Unanswered())
	assert.Equal(t, 1, s.TotalPages())
}

func TestExamSession_ReadinessFollowsAnswers(t *testing.T) {
	s := newSession(t, 3, 30)

	require.NoError(t, s.SelectChoice(0, correctChoice(1)))
	require.NoError(t, s.SelectChoice(2, wrongChoice(3)))
	assert.False(t, s.IsReadyToSubmit())
	assert.Equal(t, []int{1}, s.Unanswered())

	require.NoError(t, s.SelectChoice(1, correctChoice(2)))
	assert.True(t, s.IsReadyToSubmit())
	assert.Equal(t, model.ExamReadyToSubmit, s.State())

	// 已就绪时仍可修改答案
	require.NoError(t, s.SelectChoice(1, wrongChoice(2)))
	assert.Equal(t, model.ExamReadyToSubmit, s.State())
}

func TestExamSession_SelectChoiceDoesNotMoveCursor(t *testing.T) {
	s := newSession(t, 3, 30)

	require.NoError(t, s.SelectChoice(2, correctChoice(3)))

	assert.Equal(t, 0, s.Current())
}

func TestExamSession_SelectChoiceRejectsUnknownChoice(t *testing.T) {
	s := newSession(t, 3, 30)

	assert.ErrorIs(t, s.SelectChoice(0, correctChoice(2)), util.ErrInvalidArgument)
	assert.ErrorIs(t, s.SelectChoice(3, correctChoice(1)), util.ErrInvalidArgument)
	assert.ErrorIs(t, s.SelectChoice(-1, correctChoice(1)), util.ErrInvalidArgument)
	assert.Equal(t, []int{0, 1, 2}, s.Unanswered())
}

func TestExamSession_NavigationSaturates(t *testing.T) {
	s := newSession(t, 3, 30)

	require.NoError(t, s.Previous())
	assert.Equal(t, 0, s.Current())

	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	assert.Equal(t, 2, s.Current())

	require.NoError(t, s.Previous())
	assert.Equal(t, 1, s.Current())
}

func TestExamSession_GoTo(t *testing.T) {
	s := newSession(t, 3, 30)

	require.NoError(t, s.GoTo(2))
	assert.Equal(t, 2, s.Current())

	assert.ErrorIs(t, s.GoTo(3), util.ErrInvalidArgument)
	assert.ErrorIs(t, s.GoTo(-1), util.ErrInvalidArgument)
	assert.Equal(t, 2, s.Current())
}

func TestExamSession_PaginationWindow(t *testing.T) {
	s := newSession(t, 65, 30)

	assert.Equal(t, 3, s.TotalPages())
	assert.Len(t, s.VisibleIndexes(), 30)
	assert.Equal(t, 0, s.VisibleIndexes()[0])

	require.NoError(t, s.Paginate(-1))
	assert.Equal(t, 0, s.Page())

	require.NoError(t, s.Paginate(1))
	require.NoError(t, s.Paginate(1))
	assert.Equal(t, 2, s.Page())
	assert.Equal(t, []int{60, 61, 62, 63, 64}, s.VisibleIndexes())

	require.NoError(t, s.Paginate(1))
	assert.Equal(t, 2, s.Page())

	// 翻页不改变当前题目
	assert.Equal(t, 0, s.Current())

	assert.ErrorIs(t, s.Paginate(2), util.ErrInvalidArgument)
	assert.ErrorIs(t, s.Paginate(0), util.ErrInvalidArgument)
}

func TestExamSession_SubmitRequiresAllAnswers(t *testing.T) {
	s := newSession(t, 2, 30)
	require.NoError(t, s.SelectChoice(0, correctChoice(1)))
	scorer := &stubScorer{}

	_, err := s.Submit(context.Background(), scorer, testIdentity("1"))

	assert.ErrorIs(t, err, util.ErrUnansweredQuestions)
	assert.Zero(t, scorer.calls)
	assert.False(t, s.Submitted())
}

func TestExamSession_SubmittedIsTerminal(t *testing.T) {
	s := newSession(t, 2, 30)
	answerAll(t, s)
	scorer := &stubScorer{result: model.QuizResult{Score: 2, Total: 2, Percentage: 100, Passed: true}}

	result, err := s.Submit(context.Background(), scorer, testIdentity("1"))
	require.NoError(t, err)
	assert.Equal(t, 100, result.Percentage)
	assert.Equal(t, model.ExamSubmitted, s.State())

	_, err = s.Submit(context.Background(), scorer, testIdentity("1"))
	assert.ErrorIs(t, err, util.ErrSessionSubmitted)
	assert.ErrorIs(t, s.SelectChoice(0, wrongChoice(1)), util.ErrSessionSubmitted)
	assert.ErrorIs(t, s.Next(), util.ErrSessionSubmitted)
	assert.ErrorIs(t, s.Paginate(1), util.ErrSessionSubmitted)
	assert.Equal(t, 1, scorer.calls)
}

func TestExamSession_ScorerFailureKeepsSessionOpen(t *testing.T) {
	s := newSession(t, 2, 30)
	answerAll(t, s)
	scorer := &stubScorer{err: errors.New("remote down")}

	_, err := s.Submit(context.Background(), scorer, testIdentity("1"))

	require.Error(t, err)
	assert.False(t, s.Submitted())
	assert.Equal(t, model.ExamReadyToSubmit, s.State())
}

func TestExamSession_SnapshotRoundTrip(t *testing.T) {
	s := newSession(t, 40, 30)
	require.NoError(t, s.SelectChoice(5, wrongChoice(6)))
	require.NoError(t, s.GoTo(35))
	require.NoError(t, s.Paginate(1))

	restored, err := RestoreExamSession(s.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, 35, restored.Current())
	assert.Equal(t, 1, restored.Page())
	assert.Equal(t, s.Unanswered(), restored.Unanswered())
	assert.Equal(t, s.View(), restored.View())
}

func TestRestoreExamSession_RejectsCorruptSnapshot(t *testing.T) {
	s := newSession(t, 3, 30)

	snap := s.Snapshot()
	snap.Current = 7
	_, err := RestoreExamSession(snap)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	snap = s.Snapshot()
	snap.Questions[0].SelectedChoice = &model.Choice{ID: "999"}
	_, err = RestoreExamSession(snap)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestExamSession_ViewHidesCorrectChoice(t *testing.T) {
	s := newSession(t, 3, 30)
	require.NoError(t, s.SelectChoice(0, wrongChoice(1)))

	view := s.View()

	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 1, view.AnsweredCount)
	assert.Equal(t, []bool{true, false, false}, view.Answered)
	assert.Equal(t, wrongChoice(1), view.Question.SelectedChoiceID)
	assert.Len(t, view.Question.Choices, 3)
	assert.Equal(t, model.ExamAnswering, view.State)
}
