package dao

import (
	"context"

	"bookdot/internal/database"
	"bookdot/internal/models"
	"bookdot/internal/stream"

	"gorm.io/gorm"
)

// Comments accesses the comments table.
type Comments struct {
	store *database.Store
}

func (d *Comments) Get(ctx context.Context, id string) (*models.Comment, error) {
	return first[models.Comment](d.store.DB.WithContext(ctx).Where("id = ?", id))
}

// ByPost returns a post's comments, newest first.
func (d *Comments) ByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := d.store.DB.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

func (d *Comments) ObserveByPost(ctx context.Context, postID string) *stream.Subscription[[]*models.Comment] {
	return database.Observe(ctx, d.store, func(ctx context.Context) ([]*models.Comment, error) {
		return d.ByPost(ctx, postID)
	}, database.TableComments, database.TableCommentLikes, database.TableUsers)
}

// Create inserts comment and recomputes the parent post's comment count.
func (d *Comments) Create(ctx context.Context, comment *models.Comment) error {
	return d.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Exec(recountComments, comment.PostID).Error
	}, database.TableComments, database.TablePosts)
}

// Delete removes a comment and recomputes the parent post's comment count.
// It reports whether the comment existed.
func (d *Comments) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := d.store.Transaction(ctx, func(tx *gorm.DB) error {
		comment, err := first[models.Comment](tx.Where("id = ?", id))
		if err != nil || comment == nil {
			return err
		}
		found = true
		if err := tx.Where("id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Exec(recountComments, comment.PostID).Error
	}, database.TableComments, database.TableCommentLikes, database.TablePosts)
	return found, err
}
