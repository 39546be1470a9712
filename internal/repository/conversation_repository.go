package repository

import (
	"context"
	"errors"

	"crm-inbox-demo/backend/internal/models"

	"gorm.io/gorm"
)

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	err := r.db.WithContext(ctx).Create(conv).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *GormConversationRepository) GetByContactID(ctx context.Context, contactID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).First(&conv, "contact_id = ?", contactID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *GormConversationRepository) List(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).Order("last_at DESC").Find(&convs).Error
	return convs, err
}

func (r *GormConversationRepository) SetHandledBy(ctx context.Context, id, handledBy string) error {
	result := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("handled_by", handledBy)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) AppendMessage(ctx context.Context, msg *models.Message, opts AppendOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if opts.CacheLast {
			updates["last_message"] = msg.Content
			updates["last_at"] = msg.Timestamp
		}
		if opts.IncrementUnread {
			updates["unread"] = gorm.Expr("unread + 1")
		}
		if opts.HandledBy != nil {
			updates["handled_by"] = *opts.HandledBy
		}
		if len(updates) == 0 {
			return nil
		}

		result := tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *GormConversationRepository) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", id).
			Update("unread", 0).Error; err != nil {
			return err
		}

		return tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender = ? AND type = ?", id, conv.ContactID, models.MessageTypeCustomer).
			Update("status", models.DeliveryRead).Error
	})
}

func (r *GormConversationRepository) DeleteByContactID(ctx context.Context, contactID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		err := tx.First(&conv, "contact_id = ?", contactID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // nothing to cascade
			}
			return err
		}

		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conv).Error
	})
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC, created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) CountBySender(ctx context.Context, conversationID, sender string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender = ?", conversationID, sender).
		Count(&count).Error
	return count, err
}
