package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"codevox/internal/models"
)

type ConversationRepository interface {
	// GetOrCreate returns the context for userID, creating a default row on
	// first contact.
	GetOrCreate(ctx context.Context, userID int64) (*models.ConversationContext, error)
	Save(ctx context.Context, c *models.ConversationContext) error

	GetPendingChange(ctx context.Context, userID int64) (*models.PendingChange, error)
	// ReplacePendingChange removes any existing pending change row for the
	// user and stores the new one.
	ReplacePendingChange(ctx context.Context, change *models.PendingChange) error
	UpdatePendingChange(ctx context.Context, change *models.PendingChange) error
	ClearPendingChange(ctx context.Context, userID int64) error

	// AppendHistory stores one entry and trims the user's history to limit.
	AppendHistory(ctx context.Context, entry *models.HistoryEntry, limit int) error
	ListHistory(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, userID int64) (*models.ConversationContext, error) {
	var c models.ConversationContext
	err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = models.ConversationContext{
			UserID:       userID,
			LastActiveAt: time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepository) Save(ctx context.Context, c *models.ConversationContext) error {
	return r.db.WithContext(ctx).Omit("PendingChange", "History").Save(c).Error
}

func (r *conversationRepository) GetPendingChange(ctx context.Context, userID int64) (*models.PendingChange, error) {
	var p models.PendingChange
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *conversationRepository) ReplacePendingChange(ctx context.Context, change *models.PendingChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", change.UserID).Delete(&models.PendingChange{}).Error; err != nil {
			return err
		}
		return tx.Create(change).Error
	})
}

func (r *conversationRepository) UpdatePendingChange(ctx context.Context, change *models.PendingChange) error {
	return r.db.WithContext(ctx).Save(change).Error
}

func (r *conversationRepository) ClearPendingChange(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PendingChange{}).Error
}

func (r *conversationRepository) AppendHistory(ctx context.Context, entry *models.HistoryEntry, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if limit <= 0 {
			return nil
		}

		// Keep only the newest `limit` entries for this user.
		var keep []uint
		if err := tx.Model(&models.HistoryEntry{}).
			Where("user_id = ?", entry.UserID).
			Order("id DESC").
			Limit(limit).
			Pluck("id", &keep).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id NOT IN ?", entry.UserID, keep).
			Delete(&models.HistoryEntry{}).Error
	})
}

func (r *conversationRepository) ListHistory(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
