package dao

import (
	"context"
	"time"

	"bookdot/internal/database"
	"bookdot/internal/models"
	"bookdot/internal/stream"

	"gorm.io/gorm"
)

// Stories accesses the stories table.
type Stories struct {
	store *database.Store
}

func (d *Stories) Get(ctx context.Context, id string) (*models.Story, error) {
	return first[models.Story](d.store.DB.WithContext(ctx).Where("id = ?", id))
}

// Active returns stories that have not expired at now, newest first.
func (d *Stories) Active(ctx context.Context, now time.Time) ([]*models.Story, error) {
	var stories []*models.Story
	err := d.store.DB.WithContext(ctx).
		Where("expires_at > ?", now.UTC()).
		Order("created_at DESC").
		Find(&stories).Error
	return stories, err
}

func (d *Stories) ByUser(ctx context.Context, userID string, now time.Time) ([]*models.Story, error) {
	var stories []*models.Story
	err := d.store.DB.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now.UTC()).
		Order("created_at DESC").
		Find(&stories).Error
	return stories, err
}

// ObserveActive re-evaluates now on every emission.
func (d *Stories) ObserveActive(ctx context.Context, now func() time.Time) *stream.Subscription[[]*models.Story] {
	return database.Observe(ctx, d.store, func(ctx context.Context) ([]*models.Story, error) {
		return d.Active(ctx, now())
	}, database.TableStories, database.TableUsers)
}

func (d *Stories) Insert(ctx context.Context, story *models.Story) error {
	err := d.store.DB.WithContext(ctx).Create(story).Error
	if err == nil {
		d.store.Notify(database.TableStories)
	}
	return err
}

// MarkViewed flags the story as seen and bumps its view count on the first view.
func (d *Stories) MarkViewed(ctx context.Context, id string) (bool, error) {
	res := d.store.DB.WithContext(ctx).
		Model(&models.Story{}).
		Where("id = ? AND is_viewed = ?", id, false).
		UpdateColumns(map[string]interface{}{
			"is_viewed":  true,
			"view_count": gorm.Expr("view_count + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableStories)
	}
	return res.RowsAffected > 0, nil
}

// DeleteExpired removes stories whose expiry is at or before now.
func (d *Stories) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := d.store.DB.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.Story{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableStories)
	}
	return res.RowsAffected, nil
}
