package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/shared"
)

func newGenerationService(ts *httptest.Server) *GenerationService {
	return &GenerationService{
		httpClient:  ts.Client(),
		baseURL:     ts.URL,
		maxAttempts: 3,
		backoffBase: time.Millisecond,
	}
}

func TestUpstreamErrorIsDefinitive(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "unsupported document layout"}`))
	}))
	defer ts.Close()

	svc := newGenerationService(ts)
	_, err := svc.GenerateLesson("Vectors", "Dot Product", 5, "", "u1")

	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
	assert.Equal(t, "unsupported document layout", appErr.Data)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a received error response is never retried")
}

func TestTransportFailureRetriedToExhaustion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	svc := newGenerationService(ts)
	ts.Close() // every attempt now fails at the transport level

	_, err := svc.Chat("hello", "u1")

	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
}

func TestEmptySuccessBodyRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_ = json.NewEncoder(w).Encode(dto.OutlineResponse{
			Topics: []dto.OutlineTopic{{Title: "Sorting", Subtopics: []string{"Quicksort"}}},
		})
	}))
	defer ts.Close()

	svc := newGenerationService(ts)
	out, err := svc.GenerateOutline("u1", []dto.IngestFile{{Name: "a.pdf", ContentType: shared.PDFContentType, Data: []byte("x")}}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, out.Topics, 1)
	assert.Equal(t, "Sorting", out.Topics[0].Title)
}

func TestEmptySuccessExhaustionIsUnavailable(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	svc := newGenerationService(ts)
	_, err := svc.GenerateQuiz("Sorting", "Quicksort", "u1", 5)

	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOutlineUsesUpdateEndpointWhenExisting(t *testing.T) {
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(32<<20))
		assert.NotEmpty(t, r.FormValue("existing_outline"))
		assert.Equal(t, "u1", r.FormValue("user_id"))
		_ = json.NewEncoder(w).Encode(dto.OutlineResponse{Topics: []dto.OutlineTopic{{Title: "New Topic"}}})
	}))
	defer ts.Close()

	svc := newGenerationService(ts)
	existing := &dto.OutlineResponse{Topics: []dto.OutlineTopic{{Title: "Known"}}}
	_, err := svc.GenerateOutline("u1", nil, []string{"https://example.com/syllabus"}, existing)

	require.NoError(t, err)
	assert.Equal(t, "/update_outline/", path)
}

func TestChatStripsSurroundingQuotes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.ChatbotResponse{Message: `"The dot product measures alignment."`})
	}))
	defer ts.Close()

	svc := newGenerationService(ts)
	reply, err := svc.Chat("what is a dot product?", "u1")

	require.NoError(t, err)
	assert.Equal(t, "The dot product measures alignment.", reply)
}

func TestQuizDefaultsQuestionCount(t *testing.T) {
	var payload map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"topic_title": "Sorting", "flashcards": [{"question": "q", "options": ["a","b","c","d"], "answer": "A"}]}`))
	}))
	defer ts.Close()

	svc := newGenerationService(ts)
	_, err := svc.GenerateQuiz("Sorting", "", "u1", 0)

	require.NoError(t, err)
	assert.Equal(t, float64(shared.DefaultQuizQuestionCount), payload["question_count"])
	assert.Equal(t, "topic: Sorting", payload["text"], "module-level quiz omits the subtopic")
}
