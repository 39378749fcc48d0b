package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

var validate = validator.New()

// ValidateItems checks every item record and rejects duplicate names.
func ValidateItems(items []planner.ItemRecord) error {
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if err := validate.Struct(it); err != nil {
			return fmt.Errorf("item %d (%q): %w", i, it.Name, err)
		}
		if seen[it.Name] {
			return fmt.Errorf("item %d: duplicate name %q", i, it.Name)
		}
		seen[it.Name] = true
	}
	return nil
}

// ValidateLocations checks every location record.
func ValidateLocations(locations []planner.LocationRecord) error {
	for i, loc := range locations {
		if err := validate.Struct(loc); err != nil {
			return fmt.Errorf("location %d (%q): %w", i, loc.Name, err)
		}
	}
	return nil
}

// ValidateTasks checks every task record and rejects duplicate ids.
func ValidateTasks(tasks []planner.TaskRecord) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if err := validate.Struct(t); err != nil {
			return fmt.Errorf("task %d (%q): %w", i, t.ID, err)
		}
		if seen[t.ID] {
			return fmt.Errorf("task %d: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
