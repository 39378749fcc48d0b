package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// LocationStore handles farming locations and their drop tables.
type LocationStore struct {
	db *DB
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(db *DB) *LocationStore {
	return &LocationStore{db: db}
}

// GetAllLocations returns every location with its drop table, in import order.
func (s *LocationStore) GetAllLocations(ctx context.Context) ([]planner.LocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.name, d.item_name
		FROM locations l
		LEFT JOIN location_drops d ON d.location_name = l.name
		ORDER BY l.position ASC, d.position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var locations []planner.LocationRecord
	index := make(map[string]int)
	for rows.Next() {
		var name string
		var item sql.NullString
		if err := rows.Scan(&name, &item); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}

		i, ok := index[name]
		if !ok {
			locations = append(locations, planner.LocationRecord{Name: name, DropTable: []string{}})
			i = len(locations) - 1
			index[name] = i
		}
		if item.Valid {
			locations[i].DropTable = append(locations[i].DropTable, item.String)
		}
	}

	return locations, rows.Err()
}

// CountLocations returns the total number of locations.
func (s *LocationStore) CountLocations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting locations: %w", err)
	}
	return count, nil
}

// ReplaceLocations replaces all locations and drop tables in a transaction.
func (s *LocationStore) ReplaceLocations(ctx context.Context, locations []planner.LocationRecord) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM locations`); err != nil {
			return fmt.Errorf("clearing locations: %w", err)
		}

		locStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO locations (name, position) VALUES (?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing location statement: %w", err)
		}
		defer func() { _ = locStmt.Close() }()

		dropStmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO location_drops (location_name, position, item_name)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing drop statement: %w", err)
		}
		defer func() { _ = dropStmt.Close() }()

		for pos, loc := range locations {
			if _, err := locStmt.ExecContext(ctx, loc.Name, pos); err != nil {
				return fmt.Errorf("inserting location %s: %w", loc.Name, err)
			}
			for dpos, item := range loc.DropTable {
				if _, err := dropStmt.ExecContext(ctx, loc.Name, dpos, item); err != nil {
					return fmt.Errorf("inserting drop for %s: %w", loc.Name, err)
				}
			}
		}

		return nil
	})
}

// ClearLocations removes all location data.
func (s *LocationStore) ClearLocations(ctx context.Context) error {
	return s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM locations`)
		return err
	})
}
