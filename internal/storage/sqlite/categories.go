package sqlite

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskdeck/taskdeck/internal/types"
)

// CreateCategory inserts a category for userID.
func (s *Store) CreateCategory(userID, name, icon string) (types.Category, error) {
	return s.CreateCategoryContext(context.Background(), userID, name, icon)
}

// CreateCategoryContext inserts a category with context support.
func (s *Store) CreateCategoryContext(ctx context.Context, userID, name, icon string) (types.Category, error) {
	now := nowUTC()
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, icon, created_at) VALUES (?, ?, ?, ?)`,
		userID, name, icon, now,
	)
	if err != nil {
		return types.Category{}, fmt.Errorf("failed to insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Category{}, fmt.Errorf("failed to read inserted category id: %w", err)
	}
	return types.Category{
		ID:        int(id),
		UserID:    userID,
		Name:      name,
		Icon:      icon,
		CreatedAt: parseTime(now),
	}, nil
}

// ListCategories returns userID's categories in creation order.
func (s *Store) ListCategories(userID string) ([]types.Category, error) {
	return s.ListCategoriesContext(context.Background(), userID)
}

// ListCategoriesContext returns categories with context support.
func (s *Store) ListCategoriesContext(ctx context.Context, userID string) ([]types.Category, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_id, name, icon, created_at
		FROM categories WHERE user_id = ?
		ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []types.Category{}
	for rows.Next() {
		var c types.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames or re-icons a category owned by userID.
func (s *Store) UpdateCategory(userID string, categoryID int, name, icon string) (types.Category, error) {
	return s.UpdateCategoryContext(context.Background(), userID, categoryID, name, icon)
}

// UpdateCategoryContext updates a category with context support.
func (s *Store) UpdateCategoryContext(ctx context.Context, userID string, categoryID int, name, icon string) (types.Category, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ? WHERE id = ? AND user_id = ?`,
		name, icon, categoryID, userID,
	)
	if err != nil {
		return types.Category{}, fmt.Errorf("failed to update category %d: %w", categoryID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Category{}, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}

	row := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, icon, created_at FROM categories WHERE id = ?`,
		categoryID,
	)
	var c types.Category
	var createdAt string
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &createdAt); err != nil {
		return types.Category{}, fmt.Errorf("failed to reread category %d: %w", categoryID, err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// DeleteCategory removes a category and uncategorizes its tasks in one
// transaction. Tasks are never deleted with their category.
func (s *Store) DeleteCategory(userID string, categoryID int) error {
	return s.DeleteCategoryContext(context.Background(), userID, categoryID)
}

// DeleteCategoryContext removes a category with context support.
func (s *Store) DeleteCategoryContext(ctx context.Context, userID string, categoryID int) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET category_id = NULL, updated_at = ?
		WHERE category_id = ? AND user_id = ?`,
		nowUTC(), categoryID, userID,
	); err != nil {
		return fmt.Errorf("failed to uncategorize tasks: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category %d: %w", categoryID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// seedCategory is one entry of the optional category seed file.
type seedCategory struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
}

// SeedCategories creates the categories listed in a YAML seed file for a
// user who has none yet. Users with existing categories are left alone.
func (s *Store) SeedCategories(ctx context.Context, userID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read category seed file: %w", err)
	}

	var seeds []seedCategory
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("failed to parse category seed file: %w", err)
	}

	var existing int
	err = s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ?`, userID,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if existing > 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, seed := range seeds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, icon, created_at) VALUES (?, ?, ?, ?)`,
			userID, seed.Name, seed.Icon, nowUTC(),
		); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", seed.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
