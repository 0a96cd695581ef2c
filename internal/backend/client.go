// Package backend is the typed client for the core platform API: lessons,
// blocks, media upload, AI checkers and progress persistence. The studio
// service keeps no storage of its own; everything durable goes through here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/qazaqstudy/lesson-studio/internal/models"
)

// ErrUnauthorized is returned when the core API rejects the caller's token.
// The HTTP layer maps it to a forced logout.
var ErrUnauthorized = errors.New("unauthorized")

type contextKey string

const tokenKey contextKey = "authToken"

// WithToken attaches the caller's bearer token to the context so it can be
// forwarded to the core API
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext retrieves the forwarded bearer token, if any
func TokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}

// Client talks JSON to the core platform API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a core API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// lessonEnvelope is the wire shape of GET /lessons/{id}
type lessonEnvelope struct {
	Lesson models.Lesson  `json:"lesson"`
	Blocks []models.Block `json:"blocks"`
}

// GetLesson fetches a lesson with its ordered blocks
func (c *Client) GetLesson(ctx context.Context, id int) (*models.Lesson, []models.Block, error) {
	var env lessonEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/lessons/%d", id), nil, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &env.Lesson, env.Blocks, nil
}

// PatchLesson applies a metadata patch to a lesson
func (c *Client) PatchLesson(ctx context.Context, id int, patch models.LessonMetaPatch) error {
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/lessons/%d", id), patch, nil); err != nil {
		return fmt.Errorf("failed to patch lesson: %w", err)
	}
	return nil
}

// PublishLesson transitions a lesson to published status
func (c *Client) PublishLesson(ctx context.Context, id int) error {
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/publish", id), nil, nil); err != nil {
		return fmt.Errorf("failed to publish lesson: %w", err)
	}
	return nil
}

// UnpublishLesson transitions a lesson back to draft status
func (c *Client) UnpublishLesson(ctx context.Context, id int) error {
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/unpublish", id), nil, nil); err != nil {
		return fmt.Errorf("failed to unpublish lesson: %w", err)
	}
	return nil
}

// CreateBlock creates a block in a lesson and returns the stored block
func (c *Client) CreateBlock(ctx context.Context, lessonID int, req models.CreateBlockRequest) (*models.Block, error) {
	var block models.Block
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/blocks", lessonID), req, &block); err != nil {
		return nil, fmt.Errorf("failed to create block: %w", err)
	}
	return &block, nil
}

// UpdateBlock applies a partial update to a block
func (c *Client) UpdateBlock(ctx context.Context, blockID int, req models.UpdateBlockRequest) error {
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/blocks/%d", blockID), req, nil); err != nil {
		return fmt.Errorf("failed to update block: %w", err)
	}
	return nil
}

// DeleteBlock deletes a block
func (c *Client) DeleteBlock(ctx context.Context, blockID int) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/blocks/%d", blockID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// DuplicateBlock clones a block server-side and returns the clone
func (c *Client) DuplicateBlock(ctx context.Context, blockID int) (*models.Block, error) {
	var block models.Block
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/blocks/%d/duplicate", blockID), nil, &block); err != nil {
		return nil, fmt.Errorf("failed to duplicate block: %w", err)
	}
	return &block, nil
}

// ReorderBlocks persists the full ordered block id list for a lesson
func (c *Client) ReorderBlocks(ctx context.Context, lessonID int, ids []int) error {
	req := models.ReorderBlocksRequest{Order: ids}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/blocks/reorder", lessonID), req, nil); err != nil {
		return fmt.Errorf("failed to reorder blocks: %w", err)
	}
	return nil
}

// Upload sends a media file (kind is image, audio or video) and returns its URL
func (c *Client) Upload(ctx context.Context, kind, filename string, file io.Reader) (*models.UploadResult, error) {
	var result models.UploadResult
	fields := map[string]string{}
	if err := c.doMultipart(ctx, fmt.Sprintf("/upload/%s", kind), "file", filename, file, fields, &result); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", kind, err)
	}
	return &result, nil
}

// CheckPronunciation submits a recorded attempt for scoring
func (c *Client) CheckPronunciation(ctx context.Context, word, filename string, audio io.Reader) (*models.PronunciationScore, error) {
	var score models.PronunciationScore
	fields := map[string]string{"word": word}
	if err := c.doMultipart(ctx, "/pronunciation/check", "audio", filename, audio, fields, &score); err != nil {
		return nil, fmt.Errorf("failed to check pronunciation: %w", err)
	}
	return &score, nil
}

// CheckFreeWriting submits a free-writing answer to the AI checker
func (c *Client) CheckFreeWriting(ctx context.Context, question, answer, language string) (*models.WritingReview, error) {
	body := map[string]string{"question": question, "answer": answer, "language": language}
	var review models.WritingReview
	if err := c.doJSON(ctx, http.MethodPost, "/autochecker/free-writing/check", body, &review); err != nil {
		return nil, fmt.Errorf("failed to check free writing: %w", err)
	}
	return &review, nil
}

// CheckText submits arbitrary learner text to the AI checker
func (c *Client) CheckText(ctx context.Context, text, language string) (*models.WritingReview, error) {
	body := map[string]string{"text": text, "language": language}
	var review models.WritingReview
	if err := c.doJSON(ctx, http.MethodPost, "/autochecker/text-check", body, &review); err != nil {
		return nil, fmt.Errorf("failed to check text: %w", err)
	}
	return &review, nil
}

// CompleteLesson reports lesson completion and returns the follow-up info
func (c *Client) CompleteLesson(ctx context.Context, lessonID int, update models.ProgressUpdate) (*models.CompleteLessonResult, error) {
	var result models.CompleteLessonResult
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/complete", lessonID), update, &result); err != nil {
		return nil, fmt.Errorf("failed to complete lesson: %w", err)
	}
	return &result, nil
}

// SaveProgress reports whole-lesson progress
func (c *Client) SaveProgress(ctx context.Context, update models.ProgressUpdate) error {
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/lessons/%d/progress", update.LessonID), update, nil); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// BlockFinished reports a single finished block
func (c *Client) BlockFinished(ctx context.Context, update models.ProgressUpdate) error {
	if err := c.doJSON(ctx, http.MethodPost, "/progress/block-finished", update, nil); err != nil {
		return fmt.Errorf("failed to report finished block: %w", err)
	}
	return nil
}

// doJSON performs one JSON request/response round trip
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// doMultipart performs one multipart POST with a single file part plus
// optional text fields
func (c *Client) doMultipart(ctx context.Context, path, fileField, filename string, file io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(fileField, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file data: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// setAuth forwards the caller's bearer token and the service API key
func (c *Client) setAuth(ctx context.Context, req *http.Request) {
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// checkStatus maps non-2xx responses to errors, extracting the API's error
// message when it provides one
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("core API returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("core API returned %d", resp.StatusCode)
}
