package dao

import (
	"context"
	"strings"

	"bookdot/internal/database"
	"bookdot/internal/models"
	"bookdot/internal/stream"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counter names a user counter column that may be adjusted in place.
type Counter string

const (
	FollowerCount  Counter = "follower_count"
	FollowingCount Counter = "following_count"
)

const searchLimit = 50

// Users accesses the users table.
type Users struct {
	store *database.Store
}

func (d *Users) Get(ctx context.Context, id string) (*models.User, error) {
	return first[models.User](d.store.DB.WithContext(ctx).Where("id = ?", id))
}

func (d *Users) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return first[models.User](d.store.DB.WithContext(ctx).Where("username = ?", username))
}

// GetMany loads the users with the given ids, keyed by id.
func (d *Users) GetMany(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := d.store.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Search matches username or display name, case-insensitively.
func (d *Users) Search(ctx context.Context, query string) ([]*models.User, error) {
	like := "%" + strings.ToLower(query) + "%"
	var users []*models.User
	err := d.store.DB.WithContext(ctx).
		Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", like, like).
		Order("username ASC").
		Limit(searchLimit).
		Find(&users).Error
	return users, err
}

func (d *Users) ObserveSearch(ctx context.Context, query string) *stream.Subscription[[]*models.User] {
	return database.Observe(ctx, d.store, func(ctx context.Context) ([]*models.User, error) {
		return d.Search(ctx, query)
	}, database.TableUsers)
}

// Upsert inserts users or replaces the stored rows.
func (d *Users) Upsert(ctx context.Context, users ...*models.User) error {
	if len(users) == 0 {
		return nil
	}
	err := d.store.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(users).Error
	if err == nil {
		d.store.Notify(database.TableUsers)
	}
	return err
}

// SetFollowing flips the viewer-relative follow flag and adjusts the follower
// count in one conditional statement. It reports whether anything changed;
// repeating the same call is a no-op.
func (d *Users) SetFollowing(ctx context.Context, id string, following bool) (bool, error) {
	delta := 1
	if !following {
		delta = -1
	}
	res := d.store.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_following <> ?", id, following).
		UpdateColumns(map[string]interface{}{
			"is_following":   following,
			"follower_count": counterExpr(FollowerCount, delta),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableUsers)
	}
	return res.RowsAffected > 0, nil
}

// AdjustCounter adds delta to a counter column, never going below zero.
func (d *Users) AdjustCounter(ctx context.Context, id string, counter Counter, delta int) (bool, error) {
	res := d.store.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn(string(counter), counterExpr(counter, delta))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		d.store.Notify(database.TableUsers)
	}
	return res.RowsAffected > 0, nil
}

func counterExpr(counter Counter, delta int) clause.Expr {
	col := string(counter)
	return gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
}
