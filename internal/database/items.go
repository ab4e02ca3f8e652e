package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
)

const itemColumns = `id, owner_id, name, description, available, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, name, description, available, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, item.OwnerID, item.Name, item.Description, item.Available, now, now)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", translateError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	item, err := scanItem(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, translateError(err))
	}
	return item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query, item.Name, item.Description, item.Available, now, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE owner_id = ? ORDER BY id ASC`
	return db.queryItems(ctx, query, ownerID)
}

// SearchAvailableItems matches text case-insensitively against name and description.
func (db *DB) SearchAvailableItems(ctx context.Context, text string) ([]*models.Item, error) {
	pattern := "%" + strings.ToLower(text) + "%"
	query := `SELECT ` + itemColumns + ` FROM items
              WHERE available = 1 AND (lower(name) LIKE ? OR lower(description) LIKE ?)
              ORDER BY id ASC`
	return db.queryItems(ctx, query, pattern, pattern)
}

func (db *DB) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var description sql.NullString
	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &description, &item.Available, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	return &item, nil
}
