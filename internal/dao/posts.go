package dao

import (
	"context"

	"bookdot/internal/database"
	"bookdot/internal/models"
	"bookdot/internal/stream"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Posts accesses the posts table.
type Posts struct {
	store *database.Store
}

func (d *Posts) Get(ctx context.Context, id string) (*models.Post, error) {
	return first[models.Post](d.store.DB.WithContext(ctx).Where("id = ?", id))
}

// Feed returns the newest posts, at most MaxFeedLimit of them.
func (d *Posts) Feed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := d.store.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (d *Posts) ByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	var posts []*models.Post
	err := d.store.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

// ObserveFeed re-emits the feed whenever posts, their likes or their authors change.
func (d *Posts) ObserveFeed(ctx context.Context, limit int) *stream.Subscription[[]*models.Post] {
	return database.Observe(ctx, d.store, func(ctx context.Context) ([]*models.Post, error) {
		return d.Feed(ctx, limit, 0)
	}, database.TablePosts, database.TablePostLikes, database.TableUsers)
}

func (d *Posts) ObserveByUser(ctx context.Context, userID string) *stream.Subscription[[]*models.Post] {
	return database.Observe(ctx, d.store, func(ctx context.Context) ([]*models.Post, error) {
		return d.ByUser(ctx, userID)
	}, database.TablePosts, database.TablePostLikes, database.TableUsers)
}

// Create inserts post and recomputes the author's post count.
func (d *Posts) Create(ctx context.Context, post *models.Post) error {
	return d.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return tx.Exec(recountUserPosts, post.UserID).Error
	}, database.TablePosts, database.TableUsers)
}

// Upsert writes posts fetched from the backend over the cached rows.
// Comments only live in the cache, so comment_count is recomputed from the
// local comments rather than taken from the incoming rows.
func (d *Posts) Upsert(ctx context.Context, posts ...*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return d.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(posts).Error; err != nil {
			return err
		}
		for _, p := range posts {
			if err := tx.Exec(recountComments, p.ID).Error; err != nil {
				return err
			}
		}
		return nil
	}, database.TablePosts)
}

// Delete removes a post with its comments and likes and recomputes the
// author's post count. It reports whether the post existed.
func (d *Posts) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := d.store.Transaction(ctx, func(tx *gorm.DB) error {
		post, err := first[models.Post](tx.Where("id = ?", id))
		if err != nil || post == nil {
			return err
		}
		found = true
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Exec(recountUserPosts, post.UserID).Error
	}, database.TablePosts, database.TablePostLikes, database.TableComments, database.TableCommentLikes, database.TableUsers)
	return found, err
}
