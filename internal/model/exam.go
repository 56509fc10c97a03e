package model

import "time"

type ExamState string

const (
	ExamAnswering     ExamState = "answering"
	ExamReadyToSubmit ExamState = "ready_to_submit"
	ExamSubmitted     ExamState = "submitted"
)

// ExamSnapshot 考试会话的可持久化状态
type ExamSnapshot struct {
	SessionID string             `json:"sessionId"`
	OwnerID   RemoteID           `json:"ownerId"`
	QuizID    RemoteID           `json:"quizId"`
	QuizTitle string             `json:"quizTitle"`
	Questions []AnsweredQuestion `json:"questions"`
	Current   int                `json:"current"`
	Page      int                `json:"page"`
	PageSize  int                `json:"pageSize"`
	Threshold int                `json:"threshold"`
	Submitted bool               `json:"submitted"`
	Duration  int                `json:"duration"`
	Timestamps
}

// ViewChoice 不包含正确答案
type ViewChoice struct {
	ID    RemoteID `json:"id"`
	Title string   `json:"title"`
}

type ViewQuestion struct {
	Index            int          `json:"index"`
	ID               RemoteID     `json:"id"`
	Title            string       `json:"title"`
	Choices          []ViewChoice `json:"choices"`
	SelectedChoiceID RemoteID     `json:"selectedChoiceId,omitempty"`
}

// ExamView 前端渲染所需的会话视图
type ExamView struct {
	SessionID      string       `json:"sessionId"`
	QuizID         RemoteID     `json:"quizId"`
	QuizTitle      string       `json:"quizTitle"`
	State          ExamState    `json:"state"`
	Current        int          `json:"current"`
	Total          int          `json:"total"`
	Question       ViewQuestion `json:"question"`
	Answered       []bool       `json:"answered"`
	AnsweredCount  int          `json:"answeredCount"`
	Page           int          `json:"page"`
	TotalPages     int          `json:"totalPages"`
	VisibleIndexes []int        `json:"visibleIndexes"`
	Threshold      int          `json:"threshold"`
	Duration       int          `json:"duration"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// SelectChoiceRequest PUT /api/exam-sessions/:sid/answers
type SelectChoiceRequest struct {
	QuestionIndex *int     `json:"questionIndex" binding:"required"`
	ChoiceID      RemoteID `json:"choiceId" binding:"required"`
}

type GoToRequest struct {
	Index *int `json:"index" binding:"required"`
}

type PaginateRequest struct {
	Direction int `json:"direction" binding:"required,oneof=-1 1"`
}

type SubmitRequest struct {
	Mode string `json:"mode" binding:"omitempty,oneof=local remote"`
}
