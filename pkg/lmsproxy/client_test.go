package lmsproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveUpstream(endpoint, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, endpoint+":"+outcome)
}

func TestFetchAllAssignmentsEnvelope(t *testing.T) {
	var received SummaryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/assignments/db", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"assignments":[{"id":"11","name":"Essay","course_id":100,"due_at":null,"points_possible":10}]}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := New(Config{BaseURL: srv.URL + "/", Observer: obs})
	list, err := client.FetchAllAssignments(context.Background(), SummaryRequest{
		APIKey: "key", BaseURL: "canvas.example.edu", CourseIDs: []string{"100"}, Email: "s@example.edu", Term: "2025 Fall",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.FlexibleID("11"), list[0].ID)
	assert.Equal(t, models.FlexibleID("100"), list[0].CourseID)
	assert.Nil(t, list[0].DueAt)
	assert.Equal(t, "2025 Fall", received.Term)
	assert.Equal(t, []string{"100"}, received.CourseIDs)
	assert.Equal(t, []string{"assignments:ok"}, obs.outcomes)
}

func TestFetchAllAssignmentsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":"2"}]`))
	}))
	defer srv.Close()

	list, err := New(Config{BaseURL: srv.URL}).FetchAllAssignments(context.Background(), SummaryRequest{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID.String())
	assert.Equal(t, "2", list[1].ID.String())
}

func TestFetchAllAssignmentsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).FetchAllAssignments(context.Background(), SummaryRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFetch.Code, appErr.Code)
	assert.Equal(t, "Invalid API key", appErr.Message)
}

func TestFetchAssignmentDetailStatusFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).FetchAssignmentDetail(context.Background(), DetailRequest{AssignmentID: "1"})
	require.Error(t, err)
	assert.Equal(t, "HTTP error! status: 500", appErrors.FromError(err).Message)
}

func TestFetchAssignmentDetailQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("apiKey"))
		assert.Equal(t, "https://canvas.example.edu", q.Get("baseUrl"))
		assert.Equal(t, "100", q.Get("courseId"))
		assert.Equal(t, "7", q.Get("assignmentId"))
		_, _ = w.Write([]byte(`{"assignment_id":7,"user_id":3,"missing":true,"workflow_state":"unsubmitted","submitted_at":null,"score":null,"grade":null}`))
	}))
	defer srv.Close()

	detail, err := New(Config{BaseURL: srv.URL}).FetchAssignmentDetail(context.Background(), DetailRequest{
		APIKey: "key", BaseURL: "https://canvas.example.edu", CourseID: "100", AssignmentID: "7",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), detail.AssignmentID)
	assert.True(t, detail.Missing)
	assert.Nil(t, detail.Score)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/email/s@example.edu", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).GetUserByEmail(context.Background(), "s@example.edu")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUpdateFinishedPostsPayload(t *testing.T) {
	var got FinishedUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom/finished", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, FinishedPath: "custom/finished"})
	err := client.UpdateFinished(context.Background(), FinishedUpdate{AssignmentID: 42, Term: "2025 Fall", Email: "s@example.edu", IfFinished: true})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.AssignmentID)
	assert.True(t, got.IfFinished)
}

func TestNetworkFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url}).FetchCourses(context.Background(), "key", "base")
	assert.ErrorIs(t, err, appErrors.ErrFetch)
}
