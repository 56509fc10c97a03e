package service

import (
	"context"
	"fmt"
	"time"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"
)

const DefaultPageSize = 30

// ExamSession 进行中的作答状态，本身不加锁，由 ExamService 按会话串行访问
type ExamSession struct {
	id        string
	owner     model.RemoteID
	quizID    model.RemoteID
	quizTitle string
	questions []model.AnsweredQuestion
	current   int
	page      int
	pageSize  int
	threshold int
	duration  int
	submitted bool
	model.Timestamps
}

func NewExamSession(owner model.RemoteID, quiz *model.Quiz, pageSize int) (*ExamSession, error) {
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", util.ErrInvalidArgument)
	}
	if quiz.SuccessPercentage < 0 || quiz.SuccessPercentage > 100 {
		return nil, fmt.Errorf("%w: success threshold %d out of range", util.ErrInvalidArgument, quiz.SuccessPercentage)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	questions := make([]model.AnsweredQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		questions[i] = model.AnsweredQuestion{Question: q}
	}

	s := &ExamSession{
		id:        model.GenerateUUID(),
		owner:     owner,
		quizID:    quiz.ID,
		quizTitle: quiz.Title,
		questions: questions,
		pageSize:  pageSize,
		threshold: quiz.SuccessPercentage,
		duration:  quiz.Duration,
	}
	s.Touch(time.Now())
	return s, nil
}

func (s *ExamSession) ID() string { return s.id }
func (s *ExamSession) Owner() model.RemoteID { return s.owner }
func (s *ExamSession) QuizID() model.RemoteID { return s.quizID }
func (s *ExamSession) QuizTitle() string { return s.quizTitle }
func (s *ExamSession) Current() int { return s.current }
func (s *ExamSession) Page() int { return s.page }
func (s *ExamSession) Len() int { return len(s.questions) }
func (s *ExamSession) Threshold() int { return s.threshold }
func (s *ExamSession) Submitted() bool { return s.submitted }

func (s *ExamSession) State() model.ExamState {
	switch {
	case s.submitted:
		return model.ExamSubmitted
	case s.IsReadyToSubmit():
		return model.ExamReadyToSubmit
	default:
		return model.ExamAnswering
	}
}

func (s *ExamSession) checkOpen() error {
	if s.submitted {
		return util.ErrSessionSubmitted
	}
	return nil
}

func (s *ExamSession) checkIndex(i int) error {
	if i < 0 || i >= len(s.questions) {
		return fmt.Errorf("%w: question index %d out of range [0, %d)", util.ErrInvalidArgument, i, len(s.questions))
	}
	return nil
}

// SelectChoice 记录选择，不改变当前题目
func (s *ExamSession) SelectChoice(questionIndex int, choiceID model.RemoteID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.checkIndex(questionIndex); err != nil {
		return err
	}
	q := &s.questions[questionIndex]
	choice, ok := q.Choice(choiceID)
	if !ok {
		return fmt.Errorf("%w: choice %q not in question %d", util.ErrInvalidArgument, choiceID, questionIndex)
	}
	q.SelectedChoice = &choice
	s.Touch(time.Now())
	return nil
}

func (s *ExamSession) GoTo(index int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.current = index
	s.Touch(time.Now())
	return nil
}

func (s *ExamSession) Next() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.current < len(s.questions)-1 {
		s.current++
	}
	s.Touch(time.Now())
	return nil
}

func (s *ExamSession) Previous() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.current > 0 {
		s.current--
	}
	s.Touch(time.Now())
	return nil
}

func (s *ExamSession) TotalPages() int {
	return (len(s.questions) + s.pageSize - 1) / s.pageSize
}

// Paginate 仅移动题号选择器窗口，两端饱和
func (s *ExamSession) Paginate(direction int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if direction != 1 && direction != -1 {
		return fmt.Errorf("%w: direction must be -1 or 1, got %d", util.ErrInvalidArgument, direction)
	}
	next := s.page + direction
	if next >= 0 && next < s.TotalPages() {
		s.page = next
	}
	s.Touch(time.Now())
	return nil
}

func (s *ExamSession) VisibleIndexes() []int {
	start := s.page * s.pageSize
	end := start + s.pageSize
	if end > len(s.questions) {
		end = len(s.questions)
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

func (s *ExamSession) IsReadyToSubmit() bool {
	for _, q := range s.questions {
		if !q.Answered() {
			return false
		}
	}
	return true
}

func (s *ExamSession) Unanswered() []int {
	var out []int
	for i, q := range s.questions {
		if !q.Answered() {
			out = append(out, i)
		}
	}
	return out
}

// Submit 全部作答后交给 scorer，评分成功才进入 submitted
func (s *ExamSession) Submit(ctx context.Context, scorer Scorer, identity *model.Identity) (model.QuizResult, error) {
	if err := s.checkOpen(); err != nil {
		return model.QuizResult{}, err
	}
	if !s.IsReadyToSubmit() {
		return model.QuizResult{}, util.ErrUnansweredQuestions
	}

	questions := make([]model.AnsweredQuestion, len(s.questions))
	copy(questions, s.questions)

	result, err := scorer.Score(ctx, ScoreRequest{
		Identity:  identity,
		QuizID:    s.quizID,
		Questions: questions,
		Threshold: s.threshold,
	})
	if err != nil {
		return model.QuizResult{}, err
	}
	s.submitted = true
	s.Touch(time.Now())
	return result, nil
}

func (s *ExamSession) Snapshot() model.ExamSnapshot {
	questions := make([]model.AnsweredQuestion, len(s.questions))
	copy(questions, s.questions)
	return model.ExamSnapshot{
		SessionID:  s.id,
		OwnerID:    s.owner,
		QuizID:     s.quizID,
		QuizTitle:  s.quizTitle,
		Questions:  questions,
		Current:    s.current,
		Page:       s.page,
		PageSize:   s.pageSize,
		Threshold:  s.threshold,
		Submitted:  s.submitted,
		Duration:   s.duration,
		Timestamps: s.Timestamps,
	}
}

// RestoreExamSession 从快照恢复并重新校验不变量
func RestoreExamSession(snap model.ExamSnapshot) (*ExamSession, error) {
	s := &ExamSession{
		id:         snap.SessionID,
		owner:      snap.OwnerID,
		quizID:     snap.QuizID,
		quizTitle:  snap.QuizTitle,
		questions:  snap.Questions,
		current:    snap.Current,
		page:       snap.Page,
		pageSize:   snap.PageSize,
		threshold:  snap.Threshold,
		duration:   snap.Duration,
		submitted:  snap.Submitted,
		Timestamps: snap.Timestamps,
	}
	if len(s.questions) == 0 || s.pageSize <= 0 {
		return nil, fmt.Errorf("%w: corrupt exam snapshot %s", util.ErrInvalidArgument, snap.SessionID)
	}
	if err := s.checkIndex(s.current); err != nil {
		return nil, err
	}
	if s.page < 0 || s.page >= s.TotalPages() {
		return nil, fmt.Errorf("%w: page %d out of range", util.ErrInvalidArgument, s.page)
	}
	for _, q := range s.questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if q.SelectedChoice != nil {
			if _, ok := q.Choice(q.SelectedChoice.ID); !ok {
				return nil, fmt.Errorf("%w: selection %q not in question %s", util.ErrInvalidArgument, q.SelectedChoice.ID, q.ID)
			}
		}
	}
	return s, nil
}

func viewChoices(choices []model.Choice) []model.ViewChoice {
	out := make([]model.ViewChoice, len(choices))
	for i, c := range choices {
		out[i] = model.ViewChoice{ID: c.ID, Title: c.Title}
	}
	return out
}

// View 当前题目视图，不暴露正确答案
func (s *ExamSession) View() model.ExamView {
	q := s.questions[s.current]
	answered := make([]bool, len(s.questions))
	count := 0
	for i, aq := range s.questions {
		answered[i] = aq.Answered()
		if answered[i] {
			count++
		}
	}

	vq := model.ViewQuestion{
		Index:   s.current,
		ID:      q.ID,
		Title:   q.Title,
		Choices: viewChoices(q.Choices),
	}
	if q.SelectedChoice != nil {
		vq.SelectedChoiceID = q.SelectedChoice.ID
	}

	return model.ExamView{
		SessionID:      s.id,
		QuizID:         s.quizID,
		QuizTitle:      s.quizTitle,
		State:          s.State(),
		Current:        s.current,
		Total:          len(s.questions),
		Question:       vq,
		Answered:       answered,
		AnsweredCount:  count,
		Page:           s.page,
		TotalPages:     s.TotalPages(),
		VisibleIndexes: s.VisibleIndexes(),
		Threshold:      s.threshold,
		Duration:       s.duration,
		UpdatedAt:      s.UpdatedAt,
	}
}
