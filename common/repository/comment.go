package repository

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// CommentRepository handles database operations for patch comments and
// notification subscriptions
type CommentRepository struct {
	db *db.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(database *db.DB) *CommentRepository {
	return &CommentRepository{db: database}
}

// ListByPatch retrieves the comments on a patch, oldest first
func (r *CommentRepository) ListByPatch(ctx context.Context, patchID int) ([]models.Comment, error) {
	query := `
		SELECT c.comment_id, c.comment_date, c.visibility, c.comment_text,
		       u.user_id, u.login, u.name, u.email
		FROM patch_comment c
		JOIN account u ON u.user_id = c.user_id
		WHERE c.patch_id = $1
		ORDER BY c.comment_date ASC
	`

	rows, err := r.db.Query(ctx, query, patchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for patch %d: %w", patchID, err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		err := rows.Scan(
			&c.ID, &c.Date, &c.Visibility, &c.Text,
			&c.User.ID, &c.User.Login, &c.User.Name, &c.User.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

// Add appends a comment to a patch
func (r *CommentRepository) Add(ctx context.Context, patchID int, comment models.Comment) error {
	query := `
		INSERT INTO patch_comment (patch_id, user_id, comment_date, visibility, comment_text)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		patchID,
		comment.User.ID,
		comment.Date,
		comment.Visibility,
		comment.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to add comment to patch %d: %w", patchID, err)
	}

	return nil
}

// Notifications retrieves the notification subscriptions for a patch
func (r *CommentRepository) Notifications(ctx context.Context, patchID int) ([]models.Notification, error) {
	query := `
		SELECT notification_id, email, statuses
		FROM patch_notification
		WHERE patch_id = $1
		ORDER BY notification_id
	`

	rows, err := r.db.Query(ctx, query, patchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for patch %d: %w", patchID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n        models.Notification
			statuses []string
		)
		if err := rows.Scan(&n.ID, &n.Email, &statuses); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		for _, s := range statuses {
			status, err := models.ParseRequestStatus(s)
			if err != nil {
				return nil, fmt.Errorf("notification %d: %w", n.ID, err)
			}
			n.Statuses = append(n.Statuses, status)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}
