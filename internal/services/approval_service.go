package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codevox/internal/models"
	"codevox/internal/repositories"
)

// Outcome is a human decision on a pending change.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// DecisionResult reports what a decision actually did to the repository.
// Applied is only true when an approve produced a commit.
type DecisionResult struct {
	Change        *models.PendingChange
	Applied       bool
	CommitHash    string
	CommitError   error
	DirtyWorktree bool
}

// ApprovalService is the single-slot change approval state machine. Each user
// holds at most one undecided change; proposing replaces it, deciding is
// terminal.
type ApprovalService interface {
	Propose(ctx context.Context, userID int64, prompt, output string, sessionID *string, toolsUsed []string) (*models.PendingChange, error)
	Pending(ctx context.Context, userID int64) (*models.PendingChange, error)
	Decide(ctx context.Context, userID int64, outcome Outcome, repoPath string) (*DecisionResult, error)
	History(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
}

type approvalService struct {
	conversations repositories.ConversationRepository
	git           GitService
	resetOnReject bool
	logger        *zap.Logger
}

func NewApprovalService(conversations repositories.ConversationRepository, git GitService, resetOnReject bool, logger *zap.Logger) ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &approvalService{
		conversations: conversations,
		git:           git,
		resetOnReject: resetOnReject,
		logger:        logger,
	}
}

func (s *approvalService) Propose(ctx context.Context, userID int64, prompt, output string, sessionID *string, toolsUsed []string) (*models.PendingChange, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidInput)
	}

	change := &models.PendingChange{
		UserID:    userID,
		ChangeID:  fmt.Sprintf("change_%d_%d", userID, time.Now().Unix()),
		State:     models.ChangePending,
		Prompt:    prompt,
		Output:    output,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	change.SetTools(toolsUsed)

	// Replacing an undecided change without recording a decision is
	// intentional: the newer proposal supersedes it.
	if err := s.conversations.ReplacePendingChange(ctx, change); err != nil {
		return nil, fmt.Errorf("store pending change: %w", err)
	}

	s.logger.Info("change proposed",
		zap.Int64("user_id", userID),
		zap.String("change_id", change.ChangeID),
		zap.Int("tools", len(toolsUsed)))
	return change, nil
}

func (s *approvalService) Pending(ctx context.Context, userID int64) (*models.PendingChange, error) {
	change, err := s.conversations.GetPendingChange(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load pending change: %w", err)
	}
	if change == nil || change.State != models.ChangePending {
		return nil, ErrNoPendingChange
	}
	return change, nil
}

func (s *approvalService) Decide(ctx context.Context, userID int64, outcome Outcome, repoPath string) (*DecisionResult, error) {
	change, err := s.Pending(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	change.DecidedAt = &now
	result := &DecisionResult{Change: change}

	switch outcome {
	case OutcomeApprove:
		change.State = models.ChangeApproved
		s.applyApproved(change, result, repoPath)
	case OutcomeReject:
		change.State = models.ChangeRejected
		s.handleRejected(result, repoPath)
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, outcome)
	}

	if err := s.conversations.UpdatePendingChange(ctx, change); err != nil {
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	entry := &models.HistoryEntry{
		UserID:        userID,
		ChangeID:      change.ChangeID,
		State:         change.State,
		Timestamp:     now,
		PromptExcerpt: excerpt(change.Prompt, models.PromptExcerptLen),
	}
	if err := s.conversations.AppendHistory(ctx, entry, models.HistoryLimit); err != nil {
		// The decision already stands; a history failure is not worth
		// failing the whole request over.
		s.logger.Error("append history failed", zap.Error(err), zap.Int64("user_id", userID))
	}

	s.logger.Info("change decided",
		zap.Int64("user_id", userID),
		zap.String("change_id", change.ChangeID),
		zap.String("state", string(change.State)),
		zap.Bool("applied", result.Applied))
	return result, nil
}

// applyApproved commits the worktree. A commit failure is a partial success:
// the approval stands, the caller surfaces CommitError.
func (s *approvalService) applyApproved(change *models.PendingChange, result *DecisionResult, repoPath string) {
	if repoPath == "" || !s.git.IsRepository(repoPath) {
		return
	}
	status, err := s.git.Status(repoPath)
	if err != nil {
		result.CommitError = err
		return
	}
	if status.IsClean() {
		return
	}

	if err := s.git.StageAll(repoPath); err != nil {
		result.CommitError = err
		return
	}
	message := fmt.Sprintf("Apply assistant changes\n\nPrompt: %s", excerpt(change.Prompt, models.PromptExcerptLen))
	hash, err := s.git.Commit(repoPath, message)
	if err != nil {
		result.CommitError = err
		return
	}
	result.Applied = true
	result.CommitHash = hash
}

// handleRejected never mutates the worktree unless the operator opted into
// hard resets; by default it only reports the dirt.
func (s *approvalService) handleRejected(result *DecisionResult, repoPath string) {
	if repoPath == "" || !s.git.IsRepository(repoPath) {
		return
	}
	status, err := s.git.Status(repoPath)
	if err != nil || status.IsClean() {
		return
	}
	result.DirtyWorktree = true

	if s.resetOnReject {
		if err := s.git.ResetHard(repoPath); err != nil {
			s.logger.Error("reset after reject failed", zap.Error(err))
			return
		}
		result.DirtyWorktree = false
	}
}

func (s *approvalService) History(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	return s.conversations.ListHistory(ctx, userID)
}

// excerpt bounds s to max runes; byte slicing would split multi-byte
// prompts mid-character.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
