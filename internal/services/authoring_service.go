package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LessonLifecycleAPI defines the publish operations the service needs from
// the core API
type LessonLifecycleAPI interface {
	// PublishLesson transitions a lesson to published status
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	//
	// Returns an error if any.
	PublishLesson(ctx context.Context, id int) error
	// UnpublishLesson transitions a lesson back to draft status
	//
	// "ctx" is the context for the request.
	// "id" is the ID of the lesson.
	//
	// Returns an error if any.
	UnpublishLesson(ctx context.Context, id int) error
}

// authoringService manages one AuthoringSession per lesson being edited
type authoringService struct {
	lessonAPI LessonAPI
	blockAPI  BlockAPI
	lifecycle LessonLifecycleAPI
	debounce  time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[int]*AuthoringSession
}

// NewAuthoringService creates a new instance of authoringService
func NewAuthoringService(lessonAPI LessonAPI, blockAPI BlockAPI, lifecycle LessonLifecycleAPI, debounce time.Duration, logger *zap.Logger) *authoringService {
	return &authoringService{
		lessonAPI: lessonAPI,
		blockAPI:  blockAPI,
		lifecycle: lifecycle,
		debounce:  debounce,
		logger:    logger,
		sessions:  map[int]*AuthoringSession{},
	}
}

// Open returns the editing session for a lesson, loading it on first access
func (s *authoringService) Open(ctx context.Context, lessonID int) (*AuthoringSession, error) {
	s.mu.Lock()
	if session, ok := s.sessions[lessonID]; ok {
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()

	session := NewAuthoringSession(lessonID, s.lessonAPI, s.blockAPI, s.debounce, s.logger)
	if err := session.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[lessonID]; ok {
		// Lost the race; the concurrently opened session wins.
		session.Close()
		return existing, nil
	}
	s.sessions[lessonID] = session
	return session, nil
}

// Get returns an already-open session or an error
func (s *authoringService) Get(lessonID int) (*AuthoringSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[lessonID]
	if !ok {
		return nil, fmt.Errorf("no editing session open for lesson %d", lessonID)
	}
	return session, nil
}

// Close flushes remaining changes and discards the session. The flush error
// is returned so the caller can warn about unsaved edits.
func (s *authoringService) Close(ctx context.Context, lessonID int) error {
	s.mu.Lock()
	session, ok := s.sessions[lessonID]
	delete(s.sessions, lessonID)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	err := session.SaveNow(ctx)
	session.Close()
	if err != nil {
		return fmt.Errorf("failed to save before closing: %w", err)
	}
	return nil
}

// Publish flushes pending edits, then asks the core API to publish. A lesson
// with unsaved or unsavable edits is never published stale.
func (s *authoringService) Publish(ctx context.Context, lessonID int) error {
	if session, err := s.Get(lessonID); err == nil {
		if err := session.SaveNow(ctx); err != nil {
			return fmt.Errorf("cannot publish with unsaved changes: %w", err)
		}
	}
	if err := s.lifecycle.PublishLesson(ctx, lessonID); err != nil {
		return fmt.Errorf("failed to publish lesson: %w", err)
	}
	return nil
}

// Unpublish reverts a lesson to draft status
func (s *authoringService) Unpublish(ctx context.Context, lessonID int) error {
	if err := s.lifecycle.UnpublishLesson(ctx, lessonID); err != nil {
		return fmt.Errorf("failed to unpublish lesson: %w", err)
	}
	return nil
}
