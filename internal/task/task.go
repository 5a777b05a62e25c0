// Package task implements the in-memory task tree: the entity model, the
// flexible date parser, and the manager that owns the canonical task set.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the workflow state of a task.
type Status string

// Task statuses.
const (
	StatusTodo    Status = "TODO"
	StatusDone    Status = "DONE"
	StatusWaiting Status = "WAITING"
)

// ParseStatus validates a status token.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusTodo, StatusDone, StatusWaiting:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether the status is one of the known tokens.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Priority is the task priority. Ordinal codes sort lexically, A (high)
// before D (none).
type Priority string

// Task priorities.
const (
	PriorityHigh   Priority = "A"
	PriorityMedium Priority = "B"
	PriorityLow    Priority = "C"
	PriorityNone   Priority = "D"
)

// ParsePriority validates a priority code.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Valid reports whether the priority is one of the known codes.
func (p Priority) Valid() bool {
	_, err := ParsePriority(string(p))
	return err == nil
}

// Less orders priorities high-first.
func (p Priority) Less(other Priority) bool {
	return p < other
}

// DefaultReminderLead is the default lead time in minutes for before-due
// reminders.
const DefaultReminderLead = 30

// ErrEmptyTitle is returned when a task is created or patched with an
// empty title.
var ErrEmptyTitle = errors.New("task title must not be empty")

// Task is a node in the task forest. Child links are not stored on the
// entity; the manager maintains a parent-to-children index.
type Task struct {
	ID              string
	Title           string
	Description     string
	Author          string
	Status          Status
	Priority        Priority
	DueDate         *time.Time
	ScheduledDate   *time.Time
	ReminderMinutes int
	ReminderEnabled bool
	Tags            []string
	ParentID        string
	CreatedAt       time.Time
	OriginFile      string
}

// New creates a task with a fresh id and defaults applied.
func New(title string) (Task, error) {
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	return Task{
		ID:              uuid.NewString(),
		Title:           title,
		Status:          StatusTodo,
		Priority:        PriorityNone,
		ReminderMinutes: DefaultReminderLead,
		ReminderEnabled: true,
		CreatedAt:       time.Now(),
	}, nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	if t.ScheduledDate != nil {
		sched := *t.ScheduledDate
		out.ScheduledDate = &sched
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	return out
}

// HasTag reports whether the task carries the given label.
func (t Task) HasTag(label string) bool {
	for _, tag := range t.Tags {
		if tag == label {
			return true
		}
	}
	return false
}
