package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// ItemStore handles item catalog data access.
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new ItemStore.
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

// GetAllItems returns every item with its tags, in import order.
func (s *ItemStore) GetAllItems(ctx context.Context) ([]planner.ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.name, i.rarity, i.main_stat, i.sub_stat, i.effects, i.image, t.tag
		FROM items i
		LEFT JOIN item_tags t ON t.item_name = i.name
		ORDER BY i.position ASC, t.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []planner.ItemRecord
	index := make(map[string]int)
	for rows.Next() {
		var rec planner.ItemRecord
		var tag sql.NullString
		if err := rows.Scan(
			&rec.Name,
			&rec.Rarity,
			&rec.MainStat,
			&rec.SubStat,
			&rec.Effects,
			&rec.Image,
			&tag,
		); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}

		i, ok := index[rec.Name]
		if !ok {
			rec.Tags = []string{}
			items = append(items, rec)
			i = len(items) - 1
			index[rec.Name] = i
		}
		if tag.Valid {
			items[i].Tags = append(items[i].Tags, tag.String)
		}
	}

	return items, rows.Err()
}

// CountItems returns the total number of items.
func (s *ItemStore) CountItems(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// ReplaceItems replaces the whole item catalog in a transaction.
func (s *ItemStore) ReplaceItems(ctx context.Context, items []planner.ItemRecord) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		// Foreign keys cascade to item_tags.
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}

		itemStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO items (name, rarity, main_stat, sub_stat, effects, image, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing item statement: %w", err)
		}
		defer func() { _ = itemStmt.Close() }()

		tagStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO item_tags (item_name, position, tag)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing tag statement: %w", err)
		}
		defer func() { _ = tagStmt.Close() }()

		for pos, it := range items {
			_, err := itemStmt.ExecContext(ctx,
				it.Name, it.Rarity, it.MainStat, it.SubStat, it.Effects, it.Image, pos,
			)
			if err != nil {
				return fmt.Errorf("inserting item %s: %w", it.Name, err)
			}

			for tpos, tag := range it.Tags {
				if _, err := tagStmt.ExecContext(ctx, it.Name, tpos, tag); err != nil {
					return fmt.Errorf("inserting tag for %s: %w", it.Name, err)
				}
			}
		}

		return nil
	})
}

// ClearItems removes all item data.
func (s *ItemStore) ClearItems(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM items`)
		return err
	})
}
