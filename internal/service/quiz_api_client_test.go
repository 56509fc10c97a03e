package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizgen_gateway/internal/config"
	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *QuizAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewQuizAPIClient(config.APIConfig{BaseURL: srv.URL + "/api/", TimeoutSeconds: 5}, WithHTTPClient(srv.Client()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestQuizAPIClient_ValidateTokenSendsBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/validate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 5, "name": "Ada", "username": "ada", "email": "ada@example.com"})
	})

	id, err := client.ValidateToken(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, model.RemoteID("5"), id.ID)
	assert.Equal(t, "ada", id.Username)
	assert.Equal(t, "tok", id.Token)
}

func TestQuizAPIClient_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, util.ErrUnauthorized},
		{http.StatusForbidden, util.ErrUnauthorized},
		{http.StatusNotFound, util.ErrNotFound},
		{http.StatusInternalServerError, util.ErrRemote},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"error": "Unauthorized"})
			})

			_, err := client.GetSubject(context.Background(), "tok", "1")

			assert.ErrorIs(t, err, tc.target)
			var apiErr *util.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, "Unauthorized", apiErr.Message)
		})
	}
}

func TestQuizAPIClient_SearchSubjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quizzing/subjects", r.URL.Path)
		assert.Equal(t, "bio", r.URL.Query().Get("search_query"))
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 1, "title": "Biology", "created_by_id": 5}})
	})

	subjects, err := client.SearchSubjects(context.Background(), "tok", "bio")

	require.NoError(t, err)
	assert.Equal(t, []model.Subject{{ID: "1", Title: "Biology"}}, subjects)
}

func TestQuizAPIClient_CreateQuizMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/quizzing/quizzes", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		assert.Equal(t, "3", r.FormValue("subject_id"))
		assert.Equal(t, "Cells", r.FormValue("title"))
		assert.Equal(t, "600", r.FormValue("duration"))
		assert.Equal(t, "5", r.FormValue("number_of_questions"))
		assert.Equal(t, "60", r.FormValue("success_percentage"))

		files := r.MultipartForm.File["file"]
		if assert.Len(t, files, 2) {
			assert.Equal(t, "cells.pdf", files[0].Filename)
			assert.Equal(t, "more.pdf", files[1].Filename)
			if f, err := files[0].Open(); assert.NoError(t, err) {
				data, _ := io.ReadAll(f)
				f.Close()
				assert.Contains(t, string(data), "%PDF-1.4")
			}
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"task_id": "t-42"})
	})
	p := validParams()
	p.Files = append(p.Files, pdfMaterial("dir/more.pdf"))

	taskID, err := client.CreateQuiz(context.Background(), "tok", "3", p)

	require.NoError(t, err)
	assert.Equal(t, "t-42", taskID)
}

func TestQuizAPIClient_TaskStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/result/t-42", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ready":      true,
			"successful": true,
			"value":      map[string]interface{}{"message": "ok", "quiz_id": 9},
		})
	})

	resp, err := client.TaskStatus(context.Background(), "tok", "t-42")

	require.NoError(t, err)
	assert.True(t, resp.Ready)
	assert.True(t, resp.Successful)
	assert.JSONEq(t, `{"message":"ok","quiz_id":9}`, string(resp.Value))
}

func TestQuizAPIClient_GetQuizConvertsQuestions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/quizzing/quizzes/7":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"id": 7, "subject_id": 2, "title": "Cells", "success_percentage": 60, "duration": 600,
				"questions": []map[string]interface{}{{
					"id": 1, "title": "What is a cell?",
					"answers": []map[string]interface{}{
						{"id": 11, "title": "A unit of life", "is_correct": true},
						{"id": 12, "title": "A rock", "is_correct": false},
					},
				}},
			})
		case "/api/quizzing/subjects/2":
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": 2, "title": "Biology"})
		default:
			http.NotFound(w, r)
		}
	})

	quiz, err := client.GetQuiz(context.Background(), "tok", "7")

	require.NoError(t, err)
	assert.Equal(t, "Biology", quiz.SubjectTitle)
	assert.Equal(t, 60, quiz.SuccessPercentage)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, model.RemoteID("11"), quiz.Questions[0].CorrectChoice.ID)
	assert.Len(t, quiz.Questions[0].Choices, 2)
}

func TestConvertQuestions_RequiresExactlyOneCorrectAnswer(t *testing.T) {
	_, err := ConvertQuestions([]model.RemoteQuestion{{
		ID: "1",
		Answers: []model.RemoteAnswer{
			{ID: "11", IsCorrect: true},
			{ID: "12", IsCorrect: true},
		},
	}})
	assert.ErrorIs(t, err, model.ErrInvalidQuestion)

	_, err = ConvertQuestions([]model.RemoteQuestion{{ID: "1", Answers: []model.RemoteAnswer{{ID: "11"}}}})
	assert.ErrorIs(t, err, model.ErrInvalidQuestion)
}

func TestQuizAPIClient_Attempts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/quizzing/quizzes/7/attempt":
			var body struct {
				AnsweredQuestions []model.AttemptAnswer `json:"answered_questions"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []model.AttemptAnswer{{QuestionID: 1, ChoiceID: 11}}, body.AnsweredQuestions)
			writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Quiz attempt created successfully!", "attempt_id": 3})
		case r.Method == http.MethodGet && r.URL.Path == "/api/quizzing/quizzes/7/attempts/3":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"id": 3, "quiz_id": 7, "result": 100, "did_pass": true, "success_percentage": 60,
				"answered_questions": []map[string]interface{}{{"question_id": 1, "choice_id": 11, "is_correct": true}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	created, err := client.CreateAttempt(context.Background(), "tok", "7", []model.AttemptAnswer{{QuestionID: 1, ChoiceID: 11}})
	require.NoError(t, err)
	assert.Equal(t, model.RemoteID("3"), created.AttemptID)

	record, err := client.GetAttempt(context.Background(), "tok", "7", created.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 100, record.Result)
	assert.True(t, record.DidPass)
	require.Len(t, record.AnsweredQuestions, 1)
	assert.True(t, record.AnsweredQuestions[0].IsCorrect)
}

func TestQuizAPIClient_AttemptPathTemplate(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 3, "quiz_id": 7, "result": 50})
	}))
	t.Cleanup(srv.Close)

	client := NewQuizAPIClient(config.APIConfig{
		BaseURL:        srv.URL + "/api",
		TimeoutSeconds: 5,
		AttemptPath:    "/quizzing/quizzes/{quizId}/attempt/{attemptId}",
	}, WithHTTPClient(srv.Client()))

	record, err := client.GetAttempt(context.Background(), "tok", "7", "3")
	require.NoError(t, err)
	assert.Equal(t, "/api/quizzing/quizzes/7/attempt/3", path)
	assert.Equal(t, 50, record.Result)
}

func TestQuizAPIClient_DeleteQuiz(t *testing.T) {
	var method string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		writeJSON(w, http.StatusOK, map[string]string{"message": "Quiz deleted successfully!"})
	})

	require.NoError(t, client.DeleteQuiz(context.Background(), "tok", "7"))
	assert.Equal(t, http.MethodDelete, method)
}
