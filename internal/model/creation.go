package model

// MaterialFile 上传的学习资料
type MaterialFile struct {
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-" validate:"required,min=1"`
}

// SubjectRef 已有科目 id 或自由输入的标题，二者至少其一
type SubjectRef struct {
	ID    RemoteID `json:"id"`
	Title string   `json:"title" validate:"required_without=ID"`
}

type CreateQuizParams struct {
	Subject           SubjectRef     `json:"subject"`
	Title             string         `json:"title" validate:"required"`
	Duration          int            `json:"duration" validate:"required,min=1"`
	NumberOfQuestions int            `json:"numberOfQuestions" validate:"required,min=1"`
	SuccessPercentage int            `json:"successPercentage" validate:"required,min=1,max=100"`
	Description       string         `json:"description"`
	Files             []MaterialFile `json:"files" validate:"required,min=1,dive"`
}

type CreationOutcomeKind string

const (
	OutcomeCreated          CreationOutcomeKind = "created"
	OutcomePartial          CreationOutcomeKind = "partial"
	OutcomeMaterialTooShort CreationOutcomeKind = "material_too_short"
	OutcomeServerError      CreationOutcomeKind = "server_error"
	OutcomeTimedOut         CreationOutcomeKind = "timed_out"
	OutcomeCancelled        CreationOutcomeKind = "cancelled"
)

type CreationOutcome struct {
	Kind             CreationOutcomeKind `json:"kind"`
	QuizID           RemoteID            `json:"quizId,omitempty"`
	UngeneratedCount int                 `json:"ungeneratedCount,omitempty"`
	Message          string              `json:"message"`
	Detail           string              `json:"detail,omitempty"`
}

type JobStatus string

const (
	JobSubmitting JobStatus = "submitting"
	JobPolling    JobStatus = "polling"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed || s == JobCancelled
}

// CreationJob 一次异步测验生成
type CreationJob struct {
	ID        string           `json:"id"`
	TaskID    string           `json:"taskId,omitempty"`
	OwnerID   RemoteID         `json:"ownerId"`
	SubjectID RemoteID         `json:"subjectId,omitempty"`
	Title     string           `json:"title"`
	Status    JobStatus        `json:"status"`
	Loading   bool             `json:"loading"`
	Progress  *TaskProgress    `json:"progress,omitempty"`
	Outcome   *CreationOutcome `json:"outcome,omitempty"`
	ErrorKind string           `json:"errorKind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Archived  []string         `json:"archived,omitempty"`
	Timestamps
}

// CreateQuizForm multipart 表单，数值字段先以字符串接收
type CreateQuizForm struct {
	SubjectID         string `form:"subject_id"`
	SubjectTitle      string `form:"subject_title"`
	Title             string `form:"title"`
	Duration          string `form:"duration"`
	NumberOfQuestions string `form:"number_of_questions"`
	SuccessPercentage string `form:"success_percentage"`
	Description       string `form:"description"`
}
