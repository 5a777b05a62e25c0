package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Storage persists the flat task set. Implementations must tolerate
// malformed data on load by skipping it, and should replace files
// atomically on save.
type Storage interface {
	Load() ([]Task, error)
	Save(tasks []Task) error
}

// Manager errors.
var (
	ErrUnknownParent   = errors.New("parent task does not exist")
	ErrParentCycle     = errors.New("parent change would create a cycle")
	ErrBadReminderLead = errors.New("reminder lead must be at least 1 minute")
)

// Draft carries the caller-supplied fields for a new task. Zero values
// fall back to defaults (status TODO, priority D, reminder lead 30).
type Draft struct {
	Title           string
	Description     string
	Author          string
	Status          Status
	Priority        Priority
	DueDate         *time.Time
	ScheduledDate   *time.Time
	ReminderMinutes int
	ReminderEnabled *bool
	Tags            []string
	ParentID        string
	OriginFile      string
}

// Patch is a field-level update. Nil pointers leave the field untouched.
// Clearing an optional date requires the explicit Clear flag so a nil
// pointer stays unambiguous.
type Patch struct {
	Title              *string
	Description        *string
	Author             *string
	Status             *Status
	Priority           *Priority
	DueDate            *time.Time
	ClearDueDate       bool
	ScheduledDate      *time.Time
	ClearScheduledDate bool
	ReminderMinutes    *int
	ReminderEnabled    *bool
	Tags               *[]string
	ParentID           *string
	OriginFile         *string
}

// Manager owns the canonical in-memory task set. All mutations route
// through it; reads return copies so concurrent consumers never observe
// a torn state. Mutations apply in memory first, then rewrite the full
// tree through storage (apply-then-save); a failed save leaves memory
// ahead of disk and can be retried with Flush.
type Manager struct {
	mu       sync.RWMutex
	storage  Storage
	tasks    map[string]Task
	children map[string][]string
}

// NewManager loads the task set from storage and rebuilds the tree.
func NewManager(storage Storage) (*Manager, error) {
	m := &Manager{storage: storage}
	loaded, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	m.tasks = make(map[string]Task, len(loaded))
	for _, t := range loaded {
		if t.ID == "" {
			continue
		}
		if prev, ok := m.tasks[t.ID]; ok {
			log.Warn().Str("task_id", t.ID).Str("title", prev.Title).Msg("duplicate task id, keeping first occurrence")
			continue
		}
		m.tasks[t.ID] = t
	}
	m.rebuildIndex()
	return m, nil
}

// rebuildIndex recomputes the parent-to-children index from parent ids.
// Dangling parents and parent cycles are self-healed by demoting the
// offending task to a root. Caller must hold the write lock.
func (m *Manager) rebuildIndex() {
	for id, t := range m.tasks {
		if t.ParentID == "" {
			continue
		}
		if _, ok := m.tasks[t.ParentID]; !ok {
			log.Debug().Str("task_id", id).Str("parent_id", t.ParentID).Msg("dangling parent, treating task as root")
			t.ParentID = ""
			m.tasks[id] = t
		}
	}
	for id := range m.tasks {
		m.breakCycleAt(id)
	}

	m.children = make(map[string][]string, len(m.tasks))
	for id, t := range m.tasks {
		if t.ParentID != "" {
			m.children[t.ParentID] = append(m.children[t.ParentID], id)
		}
	}
	for parent := range m.children {
		ids := m.children[parent]
		sort.Slice(ids, func(i, j int) bool {
			left, right := m.tasks[ids[i]], m.tasks[ids[j]]
			if !left.CreatedAt.Equal(right.CreatedAt) {
				return left.CreatedAt.Before(right.CreatedAt)
			}
			return left.ID < right.ID
		})
		m.children[parent] = ids
	}
}

// breakCycleAt walks the ancestor chain from id and demotes id to a root
// if the chain revisits it.
func (m *Manager) breakCycleAt(id string) {
	current := m.tasks[id].ParentID
	for steps := 0; current != "" && steps <= len(m.tasks); steps++ {
		if current == id {
			t := m.tasks[id]
			log.Warn().Str("task_id", id).Msg("parent cycle detected, treating task as root")
			t.ParentID = ""
			m.tasks[id] = t
			return
		}
		current = m.tasks[current].ParentID
	}
}

// isAncestor reports whether candidate is id itself or one of its
// ancestors. Caller must hold at least the read lock.
func (m *Manager) isAncestor(candidate, id string) bool {
	current := id
	for steps := 0; current != "" && steps <= len(m.tasks); steps++ {
		if current == candidate {
			return true
		}
		current = m.tasks[current].ParentID
	}
	return false
}

// Add validates the draft, inserts the task, and persists the tree.
func (m *Manager) Add(d Draft) (Task, error) {
	if strings.TrimSpace(d.Title) == "" {
		return Task{}, ErrEmptyTitle
	}
	if d.Status == "" {
		d.Status = StatusTodo
	} else if !d.Status.Valid() {
		return Task{}, fmt.Errorf("unknown status %q", d.Status)
	}
	if d.Priority == "" {
		d.Priority = PriorityNone
	} else if !d.Priority.Valid() {
		return Task{}, fmt.Errorf("unknown priority %q", d.Priority)
	}
	if d.ReminderMinutes < 0 {
		return Task{}, ErrBadReminderLead
	}
	if d.ReminderMinutes == 0 {
		d.ReminderMinutes = DefaultReminderLead
	}
	enabled := true
	if d.ReminderEnabled != nil {
		enabled = *d.ReminderEnabled
	}

	t := Task{
		ID:              uuid.NewString(),
		Title:           d.Title,
		Description:     d.Description,
		Author:          d.Author,
		Status:          d.Status,
		Priority:        d.Priority,
		DueDate:         d.DueDate,
		ScheduledDate:   d.ScheduledDate,
		ReminderMinutes: d.ReminderMinutes,
		ReminderEnabled: enabled,
		Tags:            append([]string(nil), d.Tags...),
		ParentID:        d.ParentID,
		CreatedAt:       time.Now(),
		OriginFile:      d.OriginFile,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ParentID != "" {
		if _, ok := m.tasks[t.ParentID]; !ok {
			log.Debug().Str("parent_id", t.ParentID).Msg("parent not found, adding task as root")
			t.ParentID = ""
		}
	}
	m.tasks[t.ID] = t
	m.rebuildIndex()
	if err := m.persistLocked(); err != nil {
		return t.Clone(), err
	}
	return t.Clone(), nil
}

// Get looks up a task by id.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.Clone(), true
}

// Update applies a patch to a task. Every field is validated before any
// field is applied; an invalid patch leaves the task unchanged. Updating
// an unknown id is a no-op.
func (m *Manager) Update(id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}

	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", *p.Priority)
	}
	if p.ReminderMinutes != nil && *p.ReminderMinutes < 1 {
		return ErrBadReminderLead
	}
	if p.ParentID != nil && *p.ParentID != "" {
		if _, ok := m.tasks[*p.ParentID]; !ok {
			return ErrUnknownParent
		}
		if m.isAncestor(id, *p.ParentID) {
			return ErrParentCycle
		}
	}

	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Author != nil {
		t.Author = *p.Author
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.ClearScheduledDate {
		t.ScheduledDate = nil
	} else if p.ScheduledDate != nil {
		sched := *p.ScheduledDate
		t.ScheduledDate = &sched
	}
	if p.ReminderMinutes != nil {
		t.ReminderMinutes = *p.ReminderMinutes
	}
	if p.ReminderEnabled != nil {
		t.ReminderEnabled = *p.ReminderEnabled
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.ParentID != nil {
		t.ParentID = *p.ParentID
	}
	if p.OriginFile != nil {
		t.OriginFile = *p.OriginFile
	}

	m.tasks[id] = t
	m.rebuildIndex()
	return m.persistLocked()
}

// Delete removes a task and its entire subtree, then persists. Deleting
// an unknown id is a no-op.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return nil
	}
	m.deleteSubtree(id)
	m.rebuildIndex()
	return m.persistLocked()
}

// deleteSubtree removes id and its descendants post-order. Re-entry on an
// already-removed id is harmless.
func (m *Manager) deleteSubtree(id string) {
	for _, child := range append([]string(nil), m.children[id]...) {
		m.deleteSubtree(child)
	}
	delete(m.tasks, id)
	delete(m.children, id)
}

// Roots returns the top-level tasks sorted by priority (high first) then
// creation time.
func (m *Manager) Roots() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Task
	for _, t := range m.tasks {
		if t.ParentID == "" {
			out = append(out, t.Clone())
		}
	}
	sortForDisplay(out)
	return out
}

// Children returns the direct children of a task in creation order.
func (m *Manager) Children(id string) []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.children[id]
	out := make([]Task, 0, len(ids))
	for _, child := range ids {
		out = append(out, m.tasks[child].Clone())
	}
	return out
}

// WithDueDates returns every task carrying a due date, soonest first.
// Tasks without a due date are excluded.
func (m *Manager) WithDueDates() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Task
	for _, t := range m.tasks {
		if t.DueDate != nil {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(*out[j].DueDate) {
			return out[i].DueDate.Before(*out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Overdue returns tasks whose due date has passed and are not done.
func (m *Manager) Overdue(now time.Time) []Task {
	var out []Task
	for _, t := range m.WithDueDates() {
		if t.Status != StatusDone && t.DueDate.Before(now) {
			out = append(out, t)
		}
	}
	return out
}

// DueSoon returns tasks due within the window from now, excluding done
// tasks.
func (m *Manager) DueSoon(now time.Time, window time.Duration) []Task {
	cutoff := now.Add(window)
	var out []Task
	for _, t := range m.WithDueDates() {
		if t.Status == StatusDone {
			continue
		}
		if !t.DueDate.Before(now) && !t.DueDate.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// Search matches the query case-insensitively against title and
// description. An empty query returns no results.
func (m *Manager) Search(query string) []Task {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Task
	for _, t := range m.tasks {
		if strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Description), query) {
			out = append(out, t.Clone())
		}
	}
	sortForDisplay(out)
	return out
}

// Snapshot returns a copy of every task, ordered by creation time.
func (m *Manager) Snapshot() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len reports the number of tasks in the tree.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// Flush rewrites the full tree to storage without mutating it. Use it to
// retry a failed persist.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked()
}

// persistLocked writes the full task set through storage. Caller must
// hold the write lock, which also serializes saves.
func (m *Manager) persistLocked() error {
	flat := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		flat = append(flat, t)
	}
	if err := m.storage.Save(flat); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func sortForDisplay(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority.Less(tasks[j].Priority)
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
