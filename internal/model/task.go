package model

import "encoding/json"

// TaskProgress 远程任务处于 PROGRESS 状态时的进度
type TaskProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// TaskStatusResponse GET /tasks/result/{taskId}
type TaskStatusResponse struct {
	Ready      bool            `json:"ready"`
	Successful bool            `json:"successful"`
	Value      json.RawMessage `json:"value,omitempty"`
	Message    string          `json:"message,omitempty"`
	Progress   *TaskProgress   `json:"progress,omitempty"`
}

// FailureMessage 失败任务的信息，优先 message，其次字符串形式的 value
func (r TaskStatusResponse) FailureMessage() string {
	if r.Message != "" {
		return r.Message
	}
	var s string
	if len(r.Value) > 0 && json.Unmarshal(r.Value, &s) == nil {
		return s
	}
	return string(r.Value)
}

type TaskResultKind string

const (
	TaskSucceeded TaskResultKind = "success"
	TaskFailed    TaskResultKind = "failure"
	TaskTimedOut  TaskResultKind = "timed_out"
	TaskCancelled TaskResultKind = "cancelled"
)

// TaskResult 轮询的终态
type TaskResult struct {
	Kind    TaskResultKind  `json:"kind"`
	Value   json.RawMessage `json:"value,omitempty"`
	Message string          `json:"message,omitempty"`
	Checks  int             `json:"checks"`
}

// TaskValue 测验生成任务成功时的返回值
type TaskValue struct {
	Message      string       `json:"message"`
	QuizID       RemoteID     `json:"quiz_id"`
	ResponseCode string       `json:"response_code,omitempty"`
	Details      *TaskDetails `json:"details,omitempty"`
}

type TaskDetails struct {
	ResponseCode    string `json:"response_code"`
	ResponseMessage string `json:"response_message"`
}
