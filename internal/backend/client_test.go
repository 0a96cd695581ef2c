package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

func TestClient_GetLesson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/lessons/42", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "studio-key", r.Header.Get("X-API-Key"))

		json.NewEncoder(w).Encode(map[string]any{
			"lesson": map[string]any{"id": 42, "title": "Сәлемдесу", "status": "draft"},
			"blocks": []map[string]any{
				{"id": 1, "lessonId": 42, "type": "theory", "order": 1, "content": map[string]any{"markdown": "# Hi"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "studio-key")
	ctx := WithToken(context.Background(), "token-123")

	lesson, blocks, err := client.GetLesson(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, 42, lesson.ID)
	assert.Equal(t, "Сәлемдесу", lesson.Title)
	assert.Equal(t, models.LessonStatusDraft, lesson.Status)
	assert.Len(t, blocks, 1)
	assert.Equal(t, models.BlockTypeTheory, blocks[0].Type)
}

func TestClient_PatchLessonSendsOnlyChangedFields(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	title := "Жаңа атау"
	err := client.PatchLesson(context.Background(), 7, models.LessonMetaPatch{Title: &title})

	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Жаңа атау"}, received)
}

func TestClient_ReorderBlocks(t *testing.T) {
	var received models.ReorderBlocksRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lessons/7/blocks/reorder", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.ReorderBlocks(context.Background(), 7, []int{3, 1, 2})

	assert.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, received.Order)
}

func TestClient_UnauthorizedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, _, err := client.GetLesson(context.Background(), 1)

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_APIErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"lesson not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.DeleteBlock(context.Background(), 99)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lesson not found")
}

func TestClient_UploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/audio", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		file, header, err := r.FormFile("file")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "su.mp3", header.Filename)

		json.NewEncoder(w).Encode(models.UploadResult{URL: "https://cdn.example/su.mp3"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	result, err := client.Upload(context.Background(), "audio", "su.mp3", strings.NewReader("audio-bytes"))

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example/su.mp3", result.URL)
}

func TestClient_CheckPronunciation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pronunciation/check", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "су", r.FormValue("word"))

		json.NewEncoder(w).Encode(models.PronunciationScore{Score: 0.87, Status: "good"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	score, err := client.CheckPronunciation(context.Background(), "су", "attempt.webm", strings.NewReader("opus-bytes"))

	assert.NoError(t, err)
	assert.InDelta(t, 0.87, score.Score, 0.0001)
	assert.Equal(t, "good", score.Status)
}

func TestClient_CompleteLesson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lessons/5/complete", r.URL.Path)
		json.NewEncoder(w).Encode(models.CompleteLessonResult{NextLessonID: 6, Passed: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	result, err := client.CompleteLesson(context.Background(), 5, models.ProgressUpdate{LessonID: 5, Status: "completed"})

	assert.NoError(t, err)
	assert.Equal(t, 6, result.NextLessonID)
	assert.True(t, result.Passed)
}
