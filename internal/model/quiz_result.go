package model

import "time"

type ScoredBy string

const (
	ScoredLocal  ScoredBy = "local"
	ScoredRemote ScoredBy = "remote"
)

// QuizResult 一次作答的评分，创建后不可变
type QuizResult struct {
	AttemptID  RemoteID  `json:"attemptId"`
	QuizID     RemoteID  `json:"quizId"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	Threshold  int       `json:"threshold"`
	Passed     bool      `json:"passed"`
	ScoredBy   ScoredBy  `json:"scoredBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// QuizResultRecord 本地成绩历史
type QuizResultRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID    string    `gorm:"type:varchar(64);index:idx_result_owner" json:"ownerId"`
	QuizID     string    `gorm:"type:varchar(64);index" json:"quizId"`
	QuizTitle  string    `gorm:"type:varchar(255)" json:"quizTitle"`
	AttemptID  string    `gorm:"type:varchar(64);uniqueIndex" json:"attemptId"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	Threshold  int       `json:"threshold"`
	Passed     bool      `json:"passed"`
	ScoredBy   string    `gorm:"type:varchar(16)" json:"scoredBy"`
	CreatedAt  time.Time `gorm:"index:idx_result_owner" json:"createdAt"`
}

func (QuizResultRecord) TableName() string {
	return "quiz_results"
}

func NewQuizResultRecord(owner RemoteID, quizTitle string, r QuizResult) *QuizResultRecord {
	return &QuizResultRecord{
		OwnerID:    owner.String(),
		QuizID:     r.QuizID.String(),
		QuizTitle:  quizTitle,
		AttemptID:  r.AttemptID.String(),
		Score:      r.Score,
		Total:      r.Total,
		Percentage: r.Percentage,
		Threshold:  r.Threshold,
		Passed:     r.Passed,
		ScoredBy:   string(r.ScoredBy),
		CreatedAt:  r.CreatedAt,
	}
}

// AttemptAnswer 提交给远程的作答
type AttemptAnswer struct {
	QuestionID int64 `json:"question_id"`
	ChoiceID   int64 `json:"choice_id"`
}

type AttemptCreated struct {
	AttemptID RemoteID `json:"attempt_id"`
	Message   string   `json:"message"`
}

type AttemptAnswerRecord struct {
	QuestionID RemoteID `json:"question_id"`
	ChoiceID   RemoteID `json:"choice_id"`
	IsCorrect  bool     `json:"is_correct"`
}

// AttemptRecord GET /quizzing/quizzes/{id}/attempts/{attemptId}
type AttemptRecord struct {
	ID                RemoteID              `json:"id"`
	QuizID            RemoteID              `json:"quiz_id"`
	Result            int                   `json:"result"`
	DidPass           bool                  `json:"did_pass"`
	SuccessPercentage int                   `json:"success_percentage"`
	AnsweredQuestions []AttemptAnswerRecord `json:"answered_questions"`
}

// QuestionReview 结果页中的单题回顾
type QuestionReview struct {
	QuestionID       RemoteID     `json:"questionId"`
	Title            string       `json:"title"`
	Choices          []ViewChoice `json:"choices"`
	SelectedChoiceID RemoteID     `json:"selectedChoiceId,omitempty"`
	CorrectChoiceID  RemoteID     `json:"correctChoiceId"`
	IsCorrect        bool         `json:"isCorrect"`
}

type ResultPage struct {
	Quiz    QuizSummary      `json:"quiz"`
	Result  QuizResult       `json:"result"`
	Reviews []QuestionReview `json:"reviews"`
}
