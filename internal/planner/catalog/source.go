package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rsned/endfield-planner-server/internal/planner/db"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// Source supplies the raw catalog documents.
type Source interface {
	Items(ctx context.Context) ([]planner.ItemRecord, error)
	Locations(ctx context.Context) ([]planner.LocationRecord, error)
	Tasks(ctx context.Context) ([]planner.TaskRecord, error)
	// TaskDefaults returns nil when no defaults were supplied.
	TaskDefaults(ctx context.Context) (*planner.TaskDefaults, error)
}

// StoreSource reads the catalog from the SQLite tables filled by the importer.
type StoreSource struct {
	items     *db.ItemStore
	locations *db.LocationStore
	tasks     *db.TaskStore
}

// NewStoreSource creates a StoreSource over database.
func NewStoreSource(database *db.DB) *StoreSource {
	return &StoreSource{
		items:     db.NewItemStore(database),
		locations: db.NewLocationStore(database),
		tasks:     db.NewTaskStore(database),
	}
}

func (s *StoreSource) Items(ctx context.Context) ([]planner.ItemRecord, error) {
	return s.items.GetAllItems(ctx)
}

func (s *StoreSource) Locations(ctx context.Context) ([]planner.LocationRecord, error) {
	return s.locations.GetAllLocations(ctx)
}

func (s *StoreSource) Tasks(ctx context.Context) ([]planner.TaskRecord, error) {
	return s.tasks.GetAllTasks(ctx)
}

func (s *StoreSource) TaskDefaults(ctx context.Context) (*planner.TaskDefaults, error) {
	return s.tasks.GetTaskDefaults(ctx)
}

// FileSource reads the catalog straight from JSON or YAML documents.
// ItemsPath is required; an empty path for the others means the document
// is absent.
type FileSource struct {
	ItemsPath        string
	LocationsPath    string
	TasksPath        string
	TaskDefaultsPath string
}

func (s FileSource) Items(_ context.Context) ([]planner.ItemRecord, error) {
	if s.ItemsPath == "" {
		return nil, fmt.Errorf("no item list configured")
	}
	var items []planner.ItemRecord
	if err := DecodeFile(s.ItemsPath, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s FileSource) Locations(_ context.Context) ([]planner.LocationRecord, error) {
	if s.LocationsPath == "" {
		return nil, nil
	}
	var locations []planner.LocationRecord
	if err := DecodeFile(s.LocationsPath, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (s FileSource) Tasks(_ context.Context) ([]planner.TaskRecord, error) {
	if s.TasksPath == "" {
		return nil, nil
	}
	var tasks []planner.TaskRecord
	if err := DecodeFile(s.TasksPath, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s FileSource) TaskDefaults(_ context.Context) (*planner.TaskDefaults, error) {
	if s.TaskDefaultsPath == "" {
		return nil, nil
	}
	var defaults planner.TaskDefaults
	if err := DecodeFile(s.TaskDefaultsPath, &defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// DecodeFile reads path and decodes it into v. Files ending in .yaml or
// .yml are parsed as YAML, everything else as JSON.
func DecodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parsing JSON: %w", err)
		}
	}
	return nil
}
