package dao

import (
	"context"
	"time"

	"bookdot/internal/database"
	"bookdot/internal/models"

	"gorm.io/gorm"
)

// Likes accesses one of the like tables (post_likes or comment_likes).
// A like is a (target, user) row; the parent's like_count is rewritten from
// the row count inside the same transaction as every mutation.
type Likes struct {
	store        *database.Store
	table        string
	targetColumn string
	parentTable  string
	recount      string
}

func NewPostLikes(store *database.Store) *Likes {
	return &Likes{
		store:        store,
		table:        database.TablePostLikes,
		targetColumn: "post_id",
		parentTable:  database.TablePosts,
		recount:      recountPostLikes,
	}
}

func NewCommentLikes(store *database.Store) *Likes {
	return &Likes{
		store:        store,
		table:        database.TableCommentLikes,
		targetColumn: "comment_id",
		parentTable:  database.TableComments,
		recount:      recountCmtLikes,
	}
}

// Exists reports whether userID likes targetID.
func (d *Likes) Exists(ctx context.Context, targetID, userID string) (bool, error) {
	var n int64
	err := d.store.DB.WithContext(ctx).
		Table(d.table).
		Where(d.targetColumn+" = ? AND user_id = ?", targetID, userID).
		Count(&n).Error
	return n > 0, err
}

// Count returns the number of like rows for targetID.
func (d *Likes) Count(ctx context.Context, targetID string) (int, error) {
	var n int64
	err := d.store.DB.WithContext(ctx).
		Table(d.table).
		Where(d.targetColumn+" = ?", targetID).
		Count(&n).Error
	return int(n), err
}

// LikedBy returns the subset of targetIDs that userID likes.
func (d *Likes) LikedBy(ctx context.Context, userID string, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(targetIDs))
	if userID == "" || len(targetIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := d.store.DB.WithContext(ctx).
		Table(d.table).
		Where("user_id = ? AND "+d.targetColumn+" IN ?", userID, targetIDs).
		Pluck(d.targetColumn, &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Toggle removes the like if present, otherwise inserts it.
func (d *Likes) Toggle(ctx context.Context, targetID, userID string) (models.LikeResult, error) {
	return d.mutate(ctx, targetID, func(tx *gorm.DB) (bool, error) {
		removed, err := d.remove(tx, targetID, userID)
		if err != nil || removed {
			return false, err
		}
		return true, d.insert(tx, targetID, userID)
	})
}

// Like inserts the like if it is not present yet.
func (d *Likes) Like(ctx context.Context, targetID, userID string) (models.LikeResult, error) {
	return d.mutate(ctx, targetID, func(tx *gorm.DB) (bool, error) {
		return true, d.insert(tx, targetID, userID)
	})
}

// Unlike removes the like if present.
func (d *Likes) Unlike(ctx context.Context, targetID, userID string) (models.LikeResult, error) {
	return d.mutate(ctx, targetID, func(tx *gorm.DB) (bool, error) {
		_, err := d.remove(tx, targetID, userID)
		return false, err
	})
}

func (d *Likes) mutate(ctx context.Context, targetID string, change func(tx *gorm.DB) (bool, error)) (models.LikeResult, error) {
	var result models.LikeResult
	err := d.store.Transaction(ctx, func(tx *gorm.DB) error {
		liked, err := change(tx)
		if err != nil {
			return err
		}
		if err := tx.Exec(d.recount, targetID).Error; err != nil {
			return err
		}
		result.Liked = liked
		return tx.Raw("SELECT like_count FROM "+d.parentTable+" WHERE id = ?", targetID).
			Scan(&result.LikeCount).Error
	}, d.table, d.parentTable)
	return result, err
}

func (d *Likes) insert(tx *gorm.DB, targetID, userID string) error {
	return tx.Exec(
		"INSERT INTO "+d.table+" ("+d.targetColumn+", user_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		targetID, userID, time.Now().UTC(),
	).Error
}

func (d *Likes) remove(tx *gorm.DB, targetID, userID string) (bool, error) {
	res := tx.Exec("DELETE FROM "+d.table+" WHERE "+d.targetColumn+" = ? AND user_id = ?", targetID, userID)
	return res.RowsAffected > 0, res.Error
}
