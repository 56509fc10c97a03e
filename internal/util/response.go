package util

import (
	"errors"
	"net/http"

	"quizgen_gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Code:    http.StatusAccepted,
		Message: "accepted",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func ErrorWithKind(c *gin.Context, code int, kind, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Kind:    kind,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	ErrorWithKind(c, http.StatusUnauthorized, KindCredentials, "Unauthorized", nil)
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithKind(c, http.StatusBadRequest, KindInvalid, message, nil)
}

func NotFound(c *gin.Context) {
	ErrorWithKind(c, http.StatusNotFound, KindNotFound, "Resource not found", nil)
}

func InternalServerError(c *gin.Context) {
	ErrorWithKind(c, http.StatusInternalServerError, KindInternal, "Internal server error", nil)
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.String("path", c.FullPath()), zap.Error(err))
	InternalServerError(c)
}

// RespondError 按错误类别映射 HTTP 状态码
func RespondError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		ErrorWithKind(c, http.StatusBadRequest, KindValidation, "validation failed", verr.Fields)
	case errors.Is(err, ErrUnauthorized):
		Unauthorized(c)
	case errors.Is(err, ErrNotFound):
		NotFound(c)
	case errors.Is(err, ErrUnansweredQuestions):
		ErrorWithKind(c, http.StatusUnprocessableEntity, KindUnanswered, ErrUnansweredQuestions.Error(), nil)
	case errors.Is(err, ErrSessionSubmitted):
		ErrorWithKind(c, http.StatusConflict, KindSubmitted, ErrSessionSubmitted.Error(), nil)
	case errors.Is(err, ErrInvalidArgument):
		ErrorWithKind(c, http.StatusBadRequest, KindInvalid, err.Error(), nil)
	case errors.Is(err, ErrTaskStatusCheck), errors.Is(err, ErrRemote):
		logger.Log.Warn("Remote quiz service failure", zap.String("path", c.FullPath()), zap.Error(err))
		ErrorWithKind(c, http.StatusBadGateway, KindServer, "quiz service unavailable", nil)
	default:
		LogInternalError(c, err)
	}
}
