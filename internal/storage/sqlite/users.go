package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/taskdeck/taskdeck/internal/types"
)

// UserRecord is the stored account row, including fields the API never
// serializes.
type UserRecord struct {
	types.User
	PasswordHash      string
	VerificationToken string
}

// CreateUser inserts a new account row.
// Returns ErrDuplicateEmail when the email is already registered.
func (s *Store) CreateUser(ctx context.Context, rec UserRecord) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, email_verified, verification_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Email, rec.PasswordHash,
		boolToInt(rec.EmailVerified), rec.VerificationToken, nowUTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks an account up by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

// GetUserByID looks an account up by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (UserRecord, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (UserRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, email_verified,
		       COALESCE(verification_token, ''), created_at
		FROM users `+where, arg,
	)

	var rec UserRecord
	var verified int
	var createdAt string
	err := row.Scan(&rec.ID, &rec.Name, &rec.Email, &rec.PasswordHash,
		&verified, &rec.VerificationToken, &createdAt)
	if err == sql.ErrNoRows {
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("failed to get user: %w", err)
	}
	rec.EmailVerified = verified != 0
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// UpdateUserProfile changes an account's display name.
func (s *Store) UpdateUserProfile(ctx context.Context, userID, name string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET name = ? WHERE id = ?`, name, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireAffected(res)
}

// UpdatePasswordHash replaces an account's stored password hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res)
}

// MarkEmailVerified flips the verified flag for the account holding token.
// Returns ErrNotFound when no account carries the token.
func (s *Store) MarkEmailVerified(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotFound
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE users SET email_verified = 1, verification_token = NULL
		WHERE verification_token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return requireAffected(res)
}

// SetVerificationToken stores a fresh verification token for userID.
func (s *Store) SetVerificationToken(ctx context.Context, userID, token string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE users SET verification_token = ? WHERE id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}
	return requireAffected(res)
}

// GetPreferences returns userID's preferences, falling back to defaults when
// none are stored yet. The defaults are not persisted until the first write.
func (s *Store) GetPreferences(ctx context.Context, userID string) (types.UserPreferences, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT theme, show_completed_tasks, date_format
		FROM preferences WHERE user_id = ?`, userID)

	var prefs types.UserPreferences
	var show int
	err := row.Scan(&prefs.Theme, &show, &prefs.DateFormat)
	if err == sql.ErrNoRows {
		return types.DefaultPreferences(), nil
	}
	if err != nil {
		return types.UserPreferences{}, fmt.Errorf("failed to get preferences: %w", err)
	}
	prefs.ShowCompletedTasks = show != 0
	return prefs, nil
}

// UpdatePreferences writes userID's preferences, creating the row if needed.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs types.UserPreferences) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO preferences (user_id, theme, show_completed_tasks, date_format)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			theme = excluded.theme,
			show_completed_tasks = excluded.show_completed_tasks,
			date_format = excluded.date_format`,
		userID, prefs.Theme, boolToInt(prefs.ShowCompletedTasks), prefs.DateFormat,
	)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
