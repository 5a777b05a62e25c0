// Package jsonstore persists the task set as a single JSON array. It is
// the compact alternative to the outline directory backend and shares the
// same flat-record contract: child links are never serialized, the tree
// is rebuilt from parent ids on load.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/neuroplan/internal/task"
)

// Store reads and writes one JSON file. It implements task.Storage.
type Store struct {
	path string
}

// NewStore returns a store over the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

type record struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Author          string    `json:"author,omitempty"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	DueDate         *string   `json:"due_date"`
	ScheduledDate   *string   `json:"scheduled_date,omitempty"`
	ReminderMinutes int       `json:"reminder_minutes,omitempty"`
	ReminderEnabled *bool     `json:"reminder_enabled,omitempty"`
	Tags            []string  `json:"tags"`
	ParentID        string    `json:"parent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	OriginFile      string    `json:"file,omitempty"`
}

// Load reads the task file. A missing file or malformed JSON loads as an
// empty set with a diagnostic; individual records with a bad status,
// priority, or missing id are skipped.
func (s *Store) Load() ([]task.Task, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("malformed task file, starting empty")
		return nil, nil
	}

	var out []task.Task
	for _, r := range records {
		t, ok := r.toTask()
		if !ok {
			log.Warn().Str("file", s.path).Str("task_id", r.ID).Msg("skipping malformed task record")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Save rewrites the task file atomically.
func (s *Store) Save(tasks []task.Task) error {
	records := make([]record, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, fromTask(t))
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create task file dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp task file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write task file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close task file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace task file: %w", err)
	}
	return nil
}

func (r record) toTask() (task.Task, bool) {
	if r.ID == "" {
		return task.Task{}, false
	}
	status, err := task.ParseStatus(r.Status)
	if err != nil {
		return task.Task{}, false
	}
	priority, err := task.ParsePriority(r.Priority)
	if err != nil {
		return task.Task{}, false
	}

	t := task.Task{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Author:          r.Author,
		Status:          status,
		Priority:        priority,
		ReminderMinutes: r.ReminderMinutes,
		ReminderEnabled: true,
		Tags:            r.Tags,
		ParentID:        r.ParentID,
		CreatedAt:       r.CreatedAt,
		OriginFile:      r.OriginFile,
	}
	if t.ReminderMinutes < 1 {
		t.ReminderMinutes = task.DefaultReminderLead
	}
	if r.ReminderEnabled != nil {
		t.ReminderEnabled = *r.ReminderEnabled
	}
	if r.DueDate != nil {
		if due, err := time.Parse(time.RFC3339, *r.DueDate); err == nil {
			t.DueDate = &due
		}
	}
	if r.ScheduledDate != nil {
		if sched, err := time.Parse(time.RFC3339, *r.ScheduledDate); err == nil {
			t.ScheduledDate = &sched
		}
	}
	return t, true
}

func fromTask(t task.Task) record {
	enabled := t.ReminderEnabled
	r := record{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Author:          t.Author,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		ReminderMinutes: t.ReminderMinutes,
		ReminderEnabled: &enabled,
		Tags:            t.Tags,
		ParentID:        t.ParentID,
		CreatedAt:       t.CreatedAt,
		OriginFile:      t.OriginFile,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(time.RFC3339)
		r.DueDate = &due
	}
	if t.ScheduledDate != nil {
		sched := t.ScheduledDate.Format(time.RFC3339)
		r.ScheduledDate = &sched
	}
	return r
}
