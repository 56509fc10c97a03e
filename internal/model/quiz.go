package model

type Subject struct {
	ID    RemoteID `json:"id"`
	Title string   `json:"title"`
}

// QuizSummary 列表项，duration 单位为秒
type QuizSummary struct {
	ID                RemoteID `json:"id"`
	SubjectID         RemoteID `json:"subject_id"`
	Title             string   `json:"title"`
	SuccessPercentage int      `json:"success_percentage"`
	Description       string   `json:"description"`
	Duration          int      `json:"duration"`
}

type Quiz struct {
	QuizSummary
	SubjectTitle string     `json:"subject_title"`
	Questions    []Question `json:"questions"`
}

// QuizFilter GET /quizzing/quizzes 查询条件
type QuizFilter struct {
	SearchQuery string `form:"search_query"`
	SubjectID   string `form:"subject_id"`
}

// 远程接口原始结构

type RemoteAnswer struct {
	ID        RemoteID `json:"id"`
	Title     string   `json:"title"`
	IsCorrect bool     `json:"is_correct"`
}

type RemoteQuestion struct {
	ID      RemoteID       `json:"id"`
	Title   string         `json:"title"`
	Answers []RemoteAnswer `json:"answers"`
}

type RemoteQuiz struct {
	QuizSummary
	Questions []RemoteQuestion `json:"questions"`
}
