package org

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/neuroplan/internal/task"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	require.NoError(t, err)
	return parsed
}

func sampleTree(t *testing.T) []task.Task {
	t.Helper()
	due := mustTime(t, "2024-03-05 14:30")
	return []task.Task{
		{
			ID: "root-1", Title: "Plan the launch", Status: task.StatusTodo, Priority: task.PriorityHigh,
			Author: "kim", Tags: []string{"work", "q2"}, DueDate: &due,
			Description:     "Coordinate with the team.\n\nSecond paragraph.",
			ReminderMinutes: 30, ReminderEnabled: true,
			CreatedAt: mustTime(t, "2024-01-01 08:00"), OriginFile: "work.org",
		},
		{
			ID: "child-1", Title: "Book venue", Status: task.StatusDone, Priority: task.PriorityNone,
			ParentID: "root-1", ReminderMinutes: 30, ReminderEnabled: true,
			CreatedAt: mustTime(t, "2024-01-02 08:00"), OriginFile: "work.org",
		},
		{
			ID: "child-2", Title: "Send invites", Status: task.StatusWaiting, Priority: task.PriorityMedium,
			ParentID: "root-1", ReminderMinutes: 10, ReminderEnabled: false,
			CreatedAt: mustTime(t, "2024-01-03 08:00"), OriginFile: "work.org",
		},
		{
			ID: "root-2", Title: "Water plants", Status: task.StatusTodo, Priority: task.PriorityNone,
			ReminderMinutes: 30, ReminderEnabled: true,
			CreatedAt: mustTime(t, "2024-01-04 08:00"),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	original := sampleTree(t)
	require.NoError(t, store.Save(original))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, len(original))

	byID := make(map[string]task.Task, len(loaded))
	for _, got := range loaded {
		byID[got.ID] = got
	}
	for _, want := range original {
		got, ok := byID[want.ID]
		require.True(t, ok, "task %s missing after round trip", want.ID)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Priority, got.Priority)
		assert.Equal(t, want.ParentID, got.ParentID)
		assert.Equal(t, want.Author, got.Author)
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.ReminderMinutes, got.ReminderMinutes)
		assert.Equal(t, want.ReminderEnabled, got.ReminderEnabled)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
		if want.DueDate == nil {
			assert.Nil(t, got.DueDate)
		} else {
			require.NotNil(t, got.DueDate)
			assert.True(t, want.DueDate.Equal(*got.DueDate), "due %v != %v", want.DueDate, got.DueDate)
		}
		// Tags compare as sets.
		wantTags := append([]string(nil), want.Tags...)
		gotTags := append([]string(nil), got.Tags...)
		sort.Strings(wantTags)
		sort.Strings(gotTags)
		assert.Equal(t, wantTags, gotTags)
	}
}

func TestSaveKeepsSubtreeInParentFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleTree(t)))

	work, err := os.ReadFile(filepath.Join(dir, "work.org"))
	require.NoError(t, err)
	assert.Contains(t, string(work), ":id: root-1")
	assert.Contains(t, string(work), ":id: child-1")
	assert.Contains(t, string(work), ":id: child-2")
	// Depth markers follow tree depth.
	assert.Contains(t, string(work), "\n* Plan the launch")
	assert.Contains(t, string(work), "\n** DONE Book venue")

	// The untitled root lands in the default file.
	fallback, err := os.ReadFile(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	assert.Contains(t, string(fallback), ":id: root-2")
}

func TestLoadTakesParentFromDrawerNotDepth(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `#+TITLE: mixed

* Looks like a root
:PROPERTIES:
:id: deep-child
:parent_id: the-parent
:status: TODO
:priority: D
:created_at: 2024-01-01T08:00:00Z
:END:

*** Deeply indented but a root
:PROPERTIES:
:id: shallow-root
:status: TODO
:priority: D
:created_at: 2024-01-01T09:00:00Z
:END:
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.org"), []byte(content), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]task.Task{loaded[0].ID: loaded[0], loaded[1].ID: loaded[1]}
	assert.Equal(t, "the-parent", byID["deep-child"].ParentID)
	assert.Equal(t, "", byID["shallow-root"].ParentID)
}

func TestLoadSkipsRecordWithoutID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `#+TITLE: partial

* No drawer at all, dropped

* Valid task
:PROPERTIES:
:id: keeper
:status: TODO
:priority: D
:created_at: 2024-01-01T08:00:00Z
:END:

Body text survives.
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.org"), []byte(content), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "keeper", loaded[0].ID)
	assert.Equal(t, "Body text survives.", loaded[0].Description)
}

func TestLoadSkipsMalformedFileAndKeepsOthers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	broken := `#+TITLE: broken

* Never closed
:PROPERTIES:
:id: lost
`
	good := `#+TITLE: good

* Fine
:PROPERTIES:
:id: fine
:status: TODO
:priority: D
:created_at: 2024-01-01T08:00:00Z
:END:
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.org"), []byte(broken), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.org"), []byte(good), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "fine", loaded[0].ID)
	assert.Equal(t, "good.org", loaded[0].OriginFile)
}

func TestLoadSkipsRecordWithInvalidMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `#+TITLE: tasks

* Bad priority
:PROPERTIES:
:id: bad
:status: TODO
:priority: Z
:created_at: 2024-01-01T08:00:00Z
:END:

* Good
:PROPERTIES:
:id: good
:status: WAITING
:priority: B
:created_at: 2024-01-01T08:00:00Z
:END:
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.org"), []byte(content), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "good", loaded[0].ID)
	assert.Equal(t, task.StatusWaiting, loaded[0].Status)
}

func TestHeadingStatusTokenUsedWhenDrawerOmitsStatus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `#+TITLE: tasks

* DONE Shipped it :release:
:PROPERTIES:
:id: shipped
:priority: A
:created_at: 2024-01-01T08:00:00Z
:END:
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.org"), []byte(content), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, task.StatusDone, loaded[0].Status)
	assert.Equal(t, "Shipped it", loaded[0].Title)
	assert.Equal(t, []string{"release"}, loaded[0].Tags)
}

func TestIgnoresNonOutlineFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("* not a task"), 0o644))

	store, err := NewStore(dir)
	require.NoError(t, err)
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
