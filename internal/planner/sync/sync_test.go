package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/endfield-planner-server/internal/planner/db"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

func newTestSyncer(t *testing.T) (*Syncer, *db.DB) {
	t.Helper()
	database, err := db.OpenAndInit(context.Background(), db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewSyncer(database), database
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportItemsFromFile(t *testing.T) {
	ctx := context.Background()
	s, database := newTestSyncer(t)

	path := writeFile(t, "items.json", `[
		{"name": " 검A ", "rarity": 6, "tags": ["힘 증가", " 강공", "", "강공"], "main_stat": "공격력"},
		{"name": "검B", "rarity": 5, "tags": ["억제"]}
	]`)

	n, err := s.ImportItemsFromFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := db.NewItemStore(database).GetAllItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "검A", items[0].Name)
	assert.Equal(t, []string{"힘 증가", "강공"}, items[0].Tags)

	count, err := database.GetSyncMetadata(ctx, "items_count")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}

func TestImportItemsFromFile_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s, database := newTestSyncer(t)

	path := writeFile(t, "items.yaml", `
- name: 검A
  rarity: 9
  tags: [강공]
`)
	_, err := s.ImportItemsFromFile(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating items")

	count, err := db.NewItemStore(database).CountItems(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportItemsFromFile_BadJSON(t *testing.T) {
	s, _ := newTestSyncer(t)
	_, err := s.ImportItemsFromFile(context.Background(), writeFile(t, "items.json", `{`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing JSON")
}

func TestImportLocationsAndTasks(t *testing.T) {
	ctx := context.Background()
	s, database := newTestSyncer(t)

	n, err := s.ImportLocationsFromFile(ctx, writeFile(t, "drops.yml", `
- name: Loc1
  drop_table: [검A, 검B, 검A]
`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	locs, err := db.NewLocationStore(database).GetAllLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, []string{"검A", "검B"}, locs[0].DropTable)

	n, err = s.ImportTasksFromFile(ctx, writeFile(t, "tasks.json", `[
		{"id": "d1", "type": "Daily", "title": "Run", "steps": ["a", " ", "b"]},
		{"id": "w1", "type": "weekly", "title": "Boss", "desc": "x/y", "default_order": 1}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tasks, err := db.NewTaskStore(database).GetAllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, planner.TaskDaily, tasks[0].Type)
	assert.Equal(t, []string{"a", "b"}, tasks[0].Steps)

	require.NoError(t, s.ImportTaskDefaultsFromFile(ctx, writeFile(t, "defaults.json",
		`{"order": {"daily": ["d1"], "weekly": []}, "hiddenTasks": {"w1": true}}`)))
	defaults, err := db.NewTaskStore(database).GetTaskDefaults(ctx)
	require.NoError(t, err)
	require.NotNil(t, defaults)
	assert.True(t, defaults.HiddenTasks["w1"])
}

func TestImportTasks_RejectsUnknownType(t *testing.T) {
	s, _ := newTestSyncer(t)
	_, err := s.ImportTasksFromFile(context.Background(), writeFile(t, "tasks.json",
		`[{"id": "m1", "type": "monthly", "title": "x"}]`))
	require.Error(t, err)
}

func TestStatusAndClearAll(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSyncer(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	_, err := s.ImportItemsFromFile(ctx, writeFile(t, "items.json",
		`[{"name": "검A", "rarity": 6, "tags": ["강공"]}]`))
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Items)
	assert.Equal(t, "2026-03-01T12:00:00Z", status.ItemsSyncedAt)
	assert.Equal(t, "2 hours ago", status.ItemsSynced)

	require.NoError(t, s.ClearAll(ctx))
	status, err = s.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Items)
	assert.Zero(t, status.Locations)
	assert.Zero(t, status.Tasks)
}
