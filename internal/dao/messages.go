package dao

import (
	"context"
	"time"

	"bookdot/internal/database"
	"bookdot/internal/models"
	"bookdot/internal/stream"

	"gorm.io/gorm/clause"
)

// Messages accesses the messages table.
type Messages struct {
	store *database.Store
}

func (d *Messages) Get(ctx context.Context, id string) (*models.Message, error) {
	return first[models.Message](d.store.DB.WithContext(ctx).Where("id = ?", id))
}

// ByConversation returns a conversation's messages, oldest first.
func (d *Messages) ByConversation(ctx context.Context, conversationID string) ([]*models.Message, error) {
	var messages []*models.Message
	err := d.store.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (d *Messages) ObserveConversation(ctx context.Context, conversationID string) *stream.Subscription[[]*models.Message] {
	return database.Observe(ctx, d.store, func(ctx context.Context) ([]*models.Message, error) {
		return d.ByConversation(ctx, conversationID)
	}, database.TableMessages)
}

// Upsert inserts messages or replaces the stored rows.
func (d *Messages) Upsert(ctx context.Context, messages ...*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	err := d.store.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(messages).Error
	if err == nil {
		d.store.Notify(database.TableMessages)
	}
	return err
}

// MarkAsRead stamps a message read once; later calls keep the first time.
func (d *Messages) MarkAsRead(ctx context.Context, id string, at time.Time) (bool, error) {
	res := d.store.DB.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableMessages)
	}
	return res.RowsAffected > 0, nil
}

// MarkConversationAsRead stamps every unread message that readerID did not send.
func (d *Messages) MarkConversationAsRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res := d.store.DB.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		UpdateColumn("read_at", at)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableMessages)
	}
	return res.RowsAffected, nil
}

func (d *Messages) Delete(ctx context.Context, id string) (bool, error) {
	res := d.store.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Message{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableMessages)
	}
	return res.RowsAffected > 0, nil
}
