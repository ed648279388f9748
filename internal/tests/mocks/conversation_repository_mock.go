package mocks

import (
	"context"

	"codevox/internal/models"
)

// ConversationRepositoryMock implements repositories.ConversationRepository
// with overridable funcs. Nil funcs return zero values.
type ConversationRepositoryMock struct {
	GetOrCreateFunc          func(ctx context.Context, userID int64) (*models.ConversationContext, error)
	SaveFunc                 func(ctx context.Context, c *models.ConversationContext) error
	GetPendingChangeFunc     func(ctx context.Context, userID int64) (*models.PendingChange, error)
	ReplacePendingChangeFunc func(ctx context.Context, change *models.PendingChange) error
	UpdatePendingChangeFunc  func(ctx context.Context, change *models.PendingChange) error
	ClearPendingChangeFunc   func(ctx context.Context, userID int64) error
	AppendHistoryFunc        func(ctx context.Context, entry *models.HistoryEntry, limit int) error
	ListHistoryFunc          func(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
}

func (m *ConversationRepositoryMock) GetOrCreate(ctx context.Context, userID int64) (*models.ConversationContext, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, userID)
	}
	return &models.ConversationContext{UserID: userID}, nil
}

func (m *ConversationRepositoryMock) Save(ctx context.Context, c *models.ConversationContext) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, c)
	}
	return nil
}

func (m *ConversationRepositoryMock) GetPendingChange(ctx context.Context, userID int64) (*models.PendingChange, error) {
	if m.GetPendingChangeFunc != nil {
		return m.GetPendingChangeFunc(ctx, userID)
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) ReplacePendingChange(ctx context.Context, change *models.PendingChange) error {
	if m.ReplacePendingChangeFunc != nil {
		return m.ReplacePendingChangeFunc(ctx, change)
	}
	return nil
}

func (m *ConversationRepositoryMock) UpdatePendingChange(ctx context.Context, change *models.PendingChange) error {
	if m.UpdatePendingChangeFunc != nil {
		return m.UpdatePendingChangeFunc(ctx, change)
	}
	return nil
}

func (m *ConversationRepositoryMock) ClearPendingChange(ctx context.Context, userID int64) error {
	if m.ClearPendingChangeFunc != nil {
		return m.ClearPendingChangeFunc(ctx, userID)
	}
	return nil
}

func (m *ConversationRepositoryMock) AppendHistory(ctx context.Context, entry *models.HistoryEntry, limit int) error {
	if m.AppendHistoryFunc != nil {
		return m.AppendHistoryFunc(ctx, entry, limit)
	}
	return nil
}

func (m *ConversationRepositoryMock) ListHistory(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, userID)
	}
	return nil, nil
}
