// Package sync imports catalog documents into the planner database.
package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rsned/endfield-planner-server/internal/planner/catalog"
	"github.com/rsned/endfield-planner-server/internal/planner/db"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// Syncer imports item, location and task documents from JSON or YAML files.
type Syncer struct {
	db  *db.DB
	now func() time.Time
}

// NewSyncer creates a new Syncer.
func NewSyncer(database *db.DB) *Syncer {
	return &Syncer{db: database, now: time.Now}
}

// ImportItemsFromFile replaces the item catalog with the contents of path.
func (s *Syncer) ImportItemsFromFile(ctx context.Context, path string) (int, error) {
	var imports []planner.ItemRecord
	if err := catalog.DecodeFile(path, &imports); err != nil {
		return 0, err
	}

	items := make([]planner.ItemRecord, 0, len(imports))
	for _, imp := range imports {
		items = append(items, transformItem(imp))
	}
	if err := catalog.ValidateItems(items); err != nil {
		return 0, fmt.Errorf("validating items: %w", err)
	}

	if err := db.NewItemStore(s.db).ReplaceItems(ctx, items); err != nil {
		return 0, fmt.Errorf("inserting items: %w", err)
	}
	return len(items), s.recordSync(ctx, "items", len(items))
}

// ImportLocationsFromFile replaces the drop table with the contents of path.
func (s *Syncer) ImportLocationsFromFile(ctx context.Context, path string) (int, error) {
	var imports []planner.LocationRecord
	if err := catalog.DecodeFile(path, &imports); err != nil {
		return 0, err
	}

	locations := make([]planner.LocationRecord, 0, len(imports))
	for _, imp := range imports {
		locations = append(locations, transformLocation(imp))
	}
	if err := catalog.ValidateLocations(locations); err != nil {
		return 0, fmt.Errorf("validating locations: %w", err)
	}

	if err := db.NewLocationStore(s.db).ReplaceLocations(ctx, locations); err != nil {
		return 0, fmt.Errorf("inserting locations: %w", err)
	}
	return len(locations), s.recordSync(ctx, "locations", len(locations))
}

// ImportTasksFromFile replaces the task list with the contents of path.
func (s *Syncer) ImportTasksFromFile(ctx context.Context, path string) (int, error) {
	var imports []planner.TaskRecord
	if err := catalog.DecodeFile(path, &imports); err != nil {
		return 0, err
	}

	tasks := make([]planner.TaskRecord, 0, len(imports))
	for _, imp := range imports {
		tasks = append(tasks, transformTask(imp))
	}
	if err := catalog.ValidateTasks(tasks); err != nil {
		return 0, fmt.Errorf("validating tasks: %w", err)
	}

	if err := db.NewTaskStore(s.db).ReplaceTasks(ctx, tasks); err != nil {
		return 0, fmt.Errorf("inserting tasks: %w", err)
	}
	return len(tasks), s.recordSync(ctx, "tasks", len(tasks))
}

// ImportTaskDefaultsFromFile stores the task defaults document at path.
func (s *Syncer) ImportTaskDefaultsFromFile(ctx context.Context, path string) error {
	var defaults planner.TaskDefaults
	if err := catalog.DecodeFile(path, &defaults); err != nil {
		return err
	}
	if err := db.NewTaskStore(s.db).SetTaskDefaults(ctx, defaults); err != nil {
		return fmt.Errorf("storing task defaults: %w", err)
	}
	return nil
}

func (s *Syncer) recordSync(ctx context.Context, kind string, count int) error {
	if err := s.db.SetSyncMetadata(ctx, kind+"_last_sync", s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return s.db.SetSyncMetadata(ctx, kind+"_count", strconv.Itoa(count))
}

// transformItem normalises an imported item: tags are trimmed, and empty
// or repeated tags are dropped.
func transformItem(imp planner.ItemRecord) planner.ItemRecord {
	item := imp
	item.Name = strings.TrimSpace(imp.Name)
	item.Tags = cleanList(imp.Tags)
	return item
}

func transformLocation(imp planner.LocationRecord) planner.LocationRecord {
	return planner.LocationRecord{
		Name:      strings.TrimSpace(imp.Name),
		DropTable: cleanList(imp.DropTable),
	}
}

func transformTask(imp planner.TaskRecord) planner.TaskRecord {
	task := imp
	task.ID = strings.TrimSpace(imp.ID)
	task.Type = planner.TaskType(strings.ToLower(strings.TrimSpace(string(imp.Type))))
	task.Desc = strings.TrimSpace(imp.Desc)
	task.Steps = nil
	for _, step := range imp.Steps {
		if step = strings.TrimSpace(step); step != "" {
			task.Steps = append(task.Steps, step)
		}
	}
	return task
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// ClearAll removes all imported data from the database.
func (s *Syncer) ClearAll(ctx context.Context) error {
	if err := db.NewItemStore(s.db).ClearItems(ctx); err != nil {
		return err
	}
	if err := db.NewLocationStore(s.db).ClearLocations(ctx); err != nil {
		return err
	}
	if err := db.NewTaskStore(s.db).ClearTasks(ctx); err != nil {
		return err
	}
	return nil
}

// Status reports table counts and when the item list was last imported.
func (s *Syncer) Status(ctx context.Context) (planner.CatalogStatus, error) {
	var status planner.CatalogStatus
	var err error

	if status.Items, err = db.NewItemStore(s.db).CountItems(ctx); err != nil {
		return status, err
	}
	if status.Locations, err = db.NewLocationStore(s.db).CountLocations(ctx); err != nil {
		return status, err
	}
	if status.Tasks, err = db.NewTaskStore(s.db).CountTasks(ctx); err != nil {
		return status, err
	}

	last, err := s.db.GetSyncMetadata(ctx, "items_last_sync")
	if err != nil {
		return status, err
	}
	if last != "" {
		status.ItemsSyncedAt = last
		if ts, err := time.Parse(time.RFC3339, last); err == nil {
			status.ItemsSynced = humanize.RelTime(ts, s.now(), "ago", "from now")
		}
	}

	return status, nil
}
