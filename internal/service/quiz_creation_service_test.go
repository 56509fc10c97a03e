package service

import (
	"context"
	"encoding/json"
	"testing"

	"quizgen_gateway/internal/model"
	"quizgen_gateway/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *util.ValidationError
	require.ErrorAs(t, err, &verr)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestQuizCreationService_ValidateAcceptsValidParams(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)
	p := validParams()

	require.NoError(t, svc.Validate(&p))
	assert.Equal(t, util.MimePDF, p.Files[0].ContentType)
}

func TestQuizCreationService_ValidateReportsEveryField(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)
	p := model.CreateQuizParams{
		Title:             "   ",
		Duration:          0,
		NumberOfQuestions: 0,
		SuccessPercentage: 120,
	}

	err := svc.Validate(&p)

	assert.ErrorIs(t, err, util.ErrValidation)
	assert.ElementsMatch(t, []string{
		"subject.title",
		"title",
		"duration",
		"numberOfQuestions",
		"successPercentage",
		"files",
	}, fieldNames(t, err))
}

func TestQuizCreationService_ValidateRejectsNonPDF(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)
	p := validParams()
	p.Files = append(p.Files,
		model.MaterialFile{Name: "notes.txt", Data: []byte("plain text")},
		model.MaterialFile{Name: "fake.pdf", Data: []byte("not really a pdf")},
	)

	err := svc.Validate(&p)

	assert.ElementsMatch(t, []string{"files[1]", "files[2]"}, fieldNames(t, err))
}

func TestQuizCreationService_ValidateRejectsEmptyFile(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)
	p := validParams()
	p.Files[0].Data = nil

	err := svc.Validate(&p)

	assert.Contains(t, fieldNames(t, err), "files[0].data")
}

func TestQuizCreationService_SubjectIDSatisfiesSubject(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)
	p := validParams()
	p.Subject = model.SubjectRef{ID: "42"}

	assert.NoError(t, svc.Validate(&p))
}

func TestQuizCreationService_InvalidParamsMakeNoRemoteCalls(t *testing.T) {
	api := newFakeQuizAPI()
	svc := NewQuizCreationService(api, true)
	p := validParams()
	p.NumberOfQuestions = 0

	_, _, err := svc.Submit(context.Background(), testIdentity("1"), p)

	assert.ErrorIs(t, err, util.ErrValidation)
	assert.Zero(t, api.searchCalls)
	assert.Empty(t, api.createSubjects)
	assert.Empty(t, api.createQuizzes)
}

func TestQuizCreationService_BuildCreateQuizParams(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)
	form := model.CreateQuizForm{
		SubjectTitle:      "Biology",
		Title:             "Cells",
		Duration:          "ten",
		NumberOfQuestions: "5",
		SuccessPercentage: "70",
	}

	p, err := svc.BuildCreateQuizParams(form, []model.MaterialFile{pdfMaterial("a.pdf")})

	assert.Equal(t, []string{"duration"}, fieldNames(t, err))
	assert.Equal(t, 5, p.NumberOfQuestions)
	assert.Equal(t, 70, p.SuccessPercentage)
}

func TestQuizCreationService_ResolveSubject(t *testing.T) {
	ctx := context.Background()
	user := testIdentity("1")

	t.Run("existing id is used as is", func(t *testing.T) {
		api := newFakeQuizAPI()
		svc := NewQuizCreationService(api, true)

		id, err := svc.ResolveSubject(ctx, user, model.SubjectRef{ID: "9", Title: "ignored"})

		require.NoError(t, err)
		assert.Equal(t, model.RemoteID("9"), id)
		assert.Zero(t, api.searchCalls)
	})

	t.Run("exact title match is reused", func(t *testing.T) {
		api := newFakeQuizAPI()
		api.subjects = []model.Subject{{ID: "5", Title: "Biology II"}, {ID: "6", Title: "Biology"}}
		svc := NewQuizCreationService(api, true)

		id, err := svc.ResolveSubject(ctx, user, model.SubjectRef{Title: " Biology "})

		require.NoError(t, err)
		assert.Equal(t, model.RemoteID("6"), id)
		assert.Empty(t, api.createSubjects)
	})

	t.Run("missing subject is created", func(t *testing.T) {
		api := newFakeQuizAPI()
		api.subjects = []model.Subject{{ID: "5", Title: "Biology II"}}
		svc := NewQuizCreationService(api, true)

		id, err := svc.ResolveSubject(ctx, user, model.SubjectRef{Title: "Biology"})

		require.NoError(t, err)
		assert.Equal(t, []string{"Biology"}, api.createSubjects)
		assert.False(t, id.IsZero())
	})
}

func TestQuizCreationService_SubmitReturnsTaskID(t *testing.T) {
	api := newFakeQuizAPI()
	api.taskID = "abc-123"
	svc := NewQuizCreationService(api, true)

	taskID, subjectID, err := svc.Submit(context.Background(), testIdentity("1"), validParams())

	require.NoError(t, err)
	assert.Equal(t, "abc-123", taskID)
	assert.False(t, subjectID.IsZero())
	require.Len(t, api.createQuizzes, 1)
	assert.Equal(t, "Cells", api.createQuizzes[0].Title)
}

func TestQuizCreationService_Interpret(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)

	cases := []struct {
		name    string
		value   string
		kind    model.CreationOutcomeKind
		quizID  model.RemoteID
		missing int
	}{
		{
			name:  "material too short",
			value: `{"message":"Error","quiz_id":null,"details":{"response_code":"too-short","response_message":"Text is too short"}}`,
			kind:  model.OutcomeMaterialTooShort,
		},
		{
			name:    "partial generation",
			value:   `{"message":"Quiz created, 3 questions could not be generated","quiz_id":12}`,
			kind:    model.OutcomePartial,
			quizID:  "12",
			missing: 3,
		},
		{
			name:    "partial count in details",
			value:   `{"message":"Quiz created","quiz_id":"13","details":{"response_message":"1 question could not be generated"}}`,
			kind:    model.OutcomePartial,
			quizID:  "13",
			missing: 1,
		},
		{
			name:   "created",
			value:  `{"message":"Quiz created successfully!","quiz_id":7}`,
			kind:   model.OutcomeCreated,
			quizID: "7",
		},
		{
			name:  "no quiz id",
			value: `{"message":"Something went wrong","quiz_id":null}`,
			kind:  model.OutcomeServerError,
		},
		{
			name:    "partial without quiz id",
			value:   `{"message":"3 questions could not be generated"}`,
			kind:    model.OutcomePartial,
			missing: 3,
		},
		{
			name:  "unreadable value",
			value: `"plain string"`,
			kind:  model.OutcomeServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := svc.Interpret(json.RawMessage(tc.value))
			assert.Equal(t, tc.kind, out.Kind)
			assert.Equal(t, tc.quizID, out.QuizID)
			assert.Equal(t, tc.missing, out.UngeneratedCount)
			assert.NotEmpty(t, out.Message)
		})
	}
}

func TestQuizCreationService_InterpretFailureHidesDetailInRelease(t *testing.T) {
	debug := NewQuizCreationService(newFakeQuizAPI(), true)
	release := NewQuizCreationService(newFakeQuizAPI(), false)

	d := debug.InterpretFailure("Traceback: KeyError 'quiz'")
	r := release.InterpretFailure("Traceback: KeyError 'quiz'")

	assert.Equal(t, model.OutcomeServerError, d.Kind)
	assert.Equal(t, "Traceback: KeyError 'quiz'", d.Detail)
	assert.Equal(t, model.OutcomeServerError, r.Kind)
	assert.Empty(t, r.Detail)
	assert.Equal(t, d.Message, r.Message)
}

func TestQuizCreationService_InterpretResult(t *testing.T) {
	svc := NewQuizCreationService(newFakeQuizAPI(), true)

	assert.Equal(t, model.OutcomeTimedOut, svc.InterpretResult(model.TaskResult{Kind: model.TaskTimedOut}).Kind)
	assert.Equal(t, model.OutcomeCancelled, svc.InterpretResult(model.TaskResult{Kind: model.TaskCancelled}).Kind)
	assert.Equal(t, model.OutcomeServerError, svc.InterpretResult(model.TaskResult{Kind: model.TaskFailed, Message: "boom"}).Kind)
	assert.Equal(t, model.OutcomeCreated, svc.InterpretResult(model.TaskResult{
		Kind:  model.TaskSucceeded,
		Value: json.RawMessage(`{"message":"ok","quiz_id":1}`),
	}).Kind)
}
