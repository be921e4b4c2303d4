package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// AccountRepository resolves users and group memberships from the
// account directory tables
type AccountRepository struct {
	db *db.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(database *db.DB) *AccountRepository {
	return &AccountRepository{db: database}
}

// User retrieves a user by login, including group memberships
func (r *AccountRepository) User(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT user_id, login, name, email
		FROM account
		WHERE login = $1
	`

	user := &models.User{}
	err := r.db.QueryRow(ctx, query, login).Scan(&user.ID, &user.Login, &user.Name, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", login, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", login, err)
	}

	groups, err := r.groups(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Groups = groups

	return user, nil
}

// GroupMembers retrieves the users belonging to a group
func (r *AccountRepository) GroupMembers(ctx context.Context, group string) ([]models.User, error) {
	query := `
		SELECT u.user_id, u.login, u.name, u.email
		FROM account u
		JOIN account_group_member m ON m.user_id = u.user_id
		JOIN account_group g ON g.group_id = m.group_id
		WHERE g.name = $1
		ORDER BY u.login
	`

	rows, err := r.db.Query(ctx, query, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of group %q: %w", group, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Login, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		u.Groups = append(u.Groups, group)
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group members: %w", err)
	}

	return users, nil
}

func (r *AccountRepository) groups(ctx context.Context, userID int) ([]string, error) {
	query := `
		SELECT g.name
		FROM account_group g
		JOIN account_group_member m ON m.group_id = g.group_id
		WHERE m.user_id = $1
		ORDER BY g.name
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user %d: %w", userID, err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return groups, nil
}
