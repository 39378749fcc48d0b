// Package catalog loads the immutable item catalog and the task list.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

const suggestCacheSize = 256

// Catalog is the item catalog for one session. It is never mutated after Load.
type Catalog struct {
	items         []planner.Item
	byName        map[string]int
	tags          []string
	locations     []string
	dropTableRead bool

	tasks        []planner.TaskRecord
	taskDefaults *planner.TaskDefaults

	suggestions *lru.Cache[string, []string]
}

// Load fetches items, drop table, tasks and task defaults from src
// concurrently. A failed or invalid item list is fatal. The other
// documents are optional: on failure they are logged and treated as absent.
func Load(ctx context.Context, src Source, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		records   []planner.ItemRecord
		locations []planner.LocationRecord
		locErr    error
		tasks     []planner.TaskRecord
		defaults  *planner.TaskDefaults
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = src.Items(gctx)
		if err != nil {
			return fmt.Errorf("loading items: %w", err)
		}
		if err := ValidateItems(records); err != nil {
			return fmt.Errorf("invalid item list: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		locations, locErr = src.Locations(gctx)
		if locErr == nil {
			locErr = ValidateLocations(locations)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tasks, err = src.Tasks(gctx)
		if err == nil {
			err = ValidateTasks(tasks)
		}
		if err != nil {
			logger.Warn("task list unavailable", "error", err)
			tasks = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		defaults, err = src.TaskDefaults(gctx)
		if err != nil {
			logger.Warn("task defaults unavailable", "error", err)
			defaults = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if locErr != nil {
		logger.Warn("drop table unavailable, locations fall back to no info", "error", locErr)
		locations = nil
	}

	c := newCatalog(records, locations, locErr == nil && locations != nil)
	c.tasks = tasks
	c.taskDefaults = defaults

	logger.Info("catalog loaded",
		"items", len(c.items),
		"locations", len(c.locations),
		"tags", len(c.tags),
		"tasks", len(c.tasks))

	return c, nil
}

// New builds a catalog from already loaded documents. A nil locations
// slice means the drop table is absent.
func New(records []planner.ItemRecord, locations []planner.LocationRecord, tasks []planner.TaskRecord) *Catalog {
	c := newCatalog(records, locations, locations != nil)
	c.tasks = tasks
	return c
}

func newCatalog(records []planner.ItemRecord, locations []planner.LocationRecord, dropTableRead bool) *Catalog {
	itemLocations := mergeDropTable(locations)

	c := &Catalog{
		items:         make([]planner.Item, 0, len(records)),
		byName:        make(map[string]int, len(records)),
		dropTableRead: dropTableRead,
	}
	c.suggestions, _ = lru.New[string, []string](suggestCacheSize)

	tagSet := make(map[string]bool)
	for _, rec := range records {
		location := planner.NoLocationInfo
		if locs := itemLocations[rec.Name]; len(locs) > 0 {
			location = strings.Join(locs, ", ")
		}

		tags := make([]string, len(rec.Tags))
		copy(tags, rec.Tags)
		for _, t := range tags {
			tagSet[t] = true
		}

		c.byName[rec.Name] = len(c.items)
		c.items = append(c.items, planner.Item{
			Name:     rec.Name,
			Rarity:   rec.Rarity,
			Tags:     tags,
			Location: location,
			MainStat: rec.MainStat,
			SubStat:  rec.SubStat,
			Effects:  rec.Effects,
			Image:    rec.Image,
		})
	}

	c.tags = make([]string, 0, len(tagSet))
	for t := range tagSet {
		c.tags = append(c.tags, t)
	}
	sort.Strings(c.tags)

	for _, loc := range locations {
		c.locations = append(c.locations, loc.Name)
	}

	return c
}

// mergeDropTable builds the reverse map item name -> location names, in
// drop table order. A location listed twice for one item counts once.
func mergeDropTable(locations []planner.LocationRecord) map[string][]string {
	reverse := make(map[string][]string)
	for _, loc := range locations {
		for _, name := range loc.DropTable {
			dup := false
			for _, existing := range reverse[name] {
				if existing == loc.Name {
					dup = true
					break
				}
			}
			if !dup {
				reverse[name] = append(reverse[name], loc.Name)
			}
		}
	}
	return reverse
}

// Items returns every item in catalog order. The slice must not be modified.
func (c *Catalog) Items() []planner.Item {
	return c.items
}

// Item looks up an item by name.
func (c *Catalog) Item(name string) (planner.Item, bool) {
	i, ok := c.byName[name]
	if !ok {
		return planner.Item{}, false
	}
	return c.items[i], true
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Tags returns every distinct tag, sorted.
func (c *Catalog) Tags() []string {
	return c.tags
}

// Locations returns the location names of the drop table.
func (c *Catalog) Locations() []string {
	return c.locations
}

// DropTableLoaded reports whether a drop table was available.
func (c *Catalog) DropTableLoaded() bool {
	return c.dropTableRead
}

// Tasks returns the task records.
func (c *Catalog) Tasks() []planner.TaskRecord {
	return c.tasks
}

// TaskDefaults returns the supplied task defaults, or nil.
func (c *Catalog) TaskDefaults() *planner.TaskDefaults {
	return c.taskDefaults
}

// Search returns the items whose name contains query, ignoring case.
// An empty query matches everything.
func (c *Catalog) Search(query string) []planner.Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]planner.Item, len(c.items))
		copy(out, c.items)
		return out
	}

	var out []planner.Item
	for _, it := range c.items {
		if strings.Contains(strings.ToLower(it.Name), query) {
			out = append(out, it)
		}
	}
	return out
}

// Suggest returns up to n item names close to name, best first.
func (c *Catalog) Suggest(name string, n int) []string {
	if n <= 0 || name == "" {
		return nil
	}
	key := strconv.Itoa(n) + "\x00" + name
	if cached, ok := c.suggestions.Get(key); ok {
		return cached
	}

	type scored struct {
		name string
		dist int
	}
	limit := suggestLimit(utf8.RuneCountInString(name))
	var results []scored
	for _, it := range c.items {
		if strings.Contains(it.Name, name) || strings.Contains(name, it.Name) {
			results = append(results, scored{name: it.Name, dist: 0})
			continue
		}
		dist := levenshtein.ComputeDistance(name, it.Name)
		if dist > limit {
			continue
		}
		results = append(results, scored{name: it.Name, dist: dist})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].name < results[j].name
	})
	if len(results) > n {
		results = results[:n]
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.name)
	}
	c.suggestions.Add(key, names)
	return names
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
