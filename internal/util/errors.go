package util

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnansweredQuestions = errors.New("answer all questions")
	ErrSessionSubmitted    = errors.New("exam session already submitted")
	ErrRemote              = errors.New("remote quiz service error")
	ErrTaskStatusCheck     = errors.New("task status check failed")
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError 列出所有不合法字段
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) Add(field, rule, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule, Message: message})
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// APIError 远程服务返回非 2xx
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s returned %d", ErrRemote, e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s returned %d: %s", ErrRemote, e.Operation, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	errs := []error{ErrRemote}
	switch e.StatusCode {
	case 401, 403:
		errs = append(errs, ErrUnauthorized)
	case 404:
		errs = append(errs, ErrNotFound)
	}
	return errs
}
