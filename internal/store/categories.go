package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/donacije/internal/model"
)

// CreateCategory creates a new donation category.
func CreateCategory(ctx context.Context, db *sql.DB, name, defaultUnit, icon, color string) (*model.Category, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if defaultUnit == "" {
		return nil, &ValidationError{Field: "default_unit", Reason: "must not be empty"}
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, default_unit, icon, color) VALUES (?, ?, ?, ?)`,
		name, defaultUnit, icon, color,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID, including inactive ones. Existing
// donations keep resolving their category after deactivation.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	var icon, color sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, default_unit, icon, color, is_active, created_at, deleted_at
		 FROM categories WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&c.ID, &c.Name, &c.DefaultUnit, &icon, &color, &c.IsActive, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	c.Icon = icon.String
	c.Color = color.String
	return c, nil
}

// ListCategories returns all categories, optionally only active ones.
func ListCategories(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.Category, error) {
	query := `SELECT id, name, default_unit, icon, color, is_active, created_at, deleted_at
	          FROM categories WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		var icon, color sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.DefaultUnit, &icon, &color, &c.IsActive, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Icon = icon.String
		c.Color = color.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory updates a category's display fields and active flag.
func UpdateCategory(ctx context.Context, db *sql.DB, id int64, name, defaultUnit, icon, color string, isActive bool) (*model.Category, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if defaultUnit == "" {
		return nil, &ValidationError{Field: "default_unit", Reason: "must not be empty"}
	}

	result, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, default_unit = ?, icon = ?, color = ?, is_active = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		name, defaultUnit, icon, color, isActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	return GetCategory(ctx, db, id)
}

// DeactivateCategory marks a category inactive. Existing donations referencing
// it are unaffected; only new donations are blocked.
func DeactivateCategory(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE categories SET is_active = 0 WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivating category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
