package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"codevox/internal/models"
	"codevox/internal/repositories"
)

var repoSlugPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+/[A-Za-z0-9._-]+$`)

// ConversationService owns the per-user conversational state: the resumable
// assistant session, turn counter and repository binding.
type ConversationService interface {
	// ResolveOrCreateTurn returns the stored session id (nil on a fresh
	// conversation) and the new turn number. It never invents a session id;
	// only the assistant assigns those.
	ResolveOrCreateTurn(ctx context.Context, userID int64) (*string, uint, error)
	RecordSessionID(ctx context.Context, userID int64, sessionID string) error
	Reset(ctx context.Context, userID int64) error
	// CompactTurns zeroes the turn counter while keeping the session
	// resumable. ErrSessionNotFound when there is no active session.
	CompactTurns(ctx context.Context, userID int64) error

	BindRepo(ctx context.Context, userID int64, slug, path string) error
	UnbindRepo(ctx context.Context, userID int64) error

	RecordPrompt(ctx context.Context, userID int64, prompt string) error
	RecordTranscription(ctx context.Context, userID int64, text string) error

	Get(ctx context.Context, userID int64) (*models.ConversationContext, error)
}

type conversationService struct {
	conversations repositories.ConversationRepository
	logger        *zap.Logger
}

func NewConversationService(conversations repositories.ConversationRepository, logger *zap.Logger) ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &conversationService{conversations: conversations, logger: logger}
}

func (s *conversationService) ResolveOrCreateTurn(ctx context.Context, userID int64) (*string, uint, error) {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("load conversation: %w", err)
	}

	c.TurnCount++
	c.LastActiveAt = time.Now()
	if err := s.conversations.Save(ctx, c); err != nil {
		return nil, 0, fmt.Errorf("save conversation: %w", err)
	}
	return c.SessionID, c.TurnCount, nil
}

func (s *conversationService) RecordSessionID(ctx context.Context, userID int64, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session id cannot be empty", ErrInvalidInput)
	}

	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	c.SessionID = &sessionID
	return s.conversations.Save(ctx, c)
}

func (s *conversationService) Reset(ctx context.Context, userID int64) error {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	c.SessionID = nil
	c.TurnCount = 0
	if err := s.conversations.Save(ctx, c); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := s.conversations.ClearPendingChange(ctx, userID); err != nil {
		return fmt.Errorf("clear pending change: %w", err)
	}

	s.logger.Info("conversation reset", zap.Int64("user_id", userID))
	return nil
}

func (s *conversationService) CompactTurns(ctx context.Context, userID int64) error {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if c.SessionID == nil || *c.SessionID == "" {
		return fmt.Errorf("%w: no active session to compact", ErrSessionNotFound)
	}

	c.TurnCount = 0
	if err := s.conversations.Save(ctx, c); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	s.logger.Info("session compacted",
		zap.Int64("user_id", userID),
		zap.String("session_id", *c.SessionID))
	return nil
}

func (s *conversationService) BindRepo(ctx context.Context, userID int64, slug, path string) error {
	slug = strings.TrimSpace(slug)
	path = strings.TrimSpace(path)
	if !repoSlugPattern.MatchString(slug) {
		return fmt.Errorf("%w: repository must be owner/repo, got %q", ErrInvalidInput, slug)
	}
	if path == "" {
		return fmt.Errorf("%w: repository path cannot be empty", ErrInvalidInput)
	}

	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	c.RepoSlug = slug
	c.RepoPath = path
	// The assistant context was built against the previous working
	// directory; force a fresh session.
	c.SessionID = nil
	if err := s.conversations.Save(ctx, c); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	s.logger.Info("repository bound",
		zap.Int64("user_id", userID),
		zap.String("slug", slug))
	return nil
}

func (s *conversationService) UnbindRepo(ctx context.Context, userID int64) error {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	c.RepoSlug = ""
	c.RepoPath = ""
	c.SessionID = nil
	return s.conversations.Save(ctx, c)
}

func (s *conversationService) RecordPrompt(ctx context.Context, userID int64, prompt string) error {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	c.LastPrompt = prompt
	return s.conversations.Save(ctx, c)
}

func (s *conversationService) RecordTranscription(ctx context.Context, userID int64, text string) error {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	c.LastTranscription = text
	return s.conversations.Save(ctx, c)
}

func (s *conversationService) Get(ctx context.Context, userID int64) (*models.ConversationContext, error) {
	c, err := s.conversations.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if pending, err := s.conversations.GetPendingChange(ctx, userID); err == nil {
		c.PendingChange = pending
	}
	if history, err := s.conversations.ListHistory(ctx, userID); err == nil {
		c.History = history
	}
	return c, nil
}
