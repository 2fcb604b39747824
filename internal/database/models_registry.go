package database

import "bookdot/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// in migration order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Message{},
		&models.Story{},
	}
}

// Table names used for change notification.
const (
	TableUsers        = "users"
	TablePosts        = "posts"
	TablePostLikes    = "post_likes"
	TableComments     = "comments"
	TableCommentLikes = "comment_likes"
	TableMessages     = "messages"
	TableStories      = "stories"
)
