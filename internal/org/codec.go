// Package org persists the task tree as a directory of outline (.org)
// files: one heading per task, a properties drawer for metadata, and the
// body text as the description. The format stays hand-editable; heading
// depth is presentational and parent links come from the drawer only.
package org

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/neuroplan/internal/task"
)

const (
	// DefaultFile receives tasks that carry no origin file.
	DefaultFile = "tasks.org"

	extension     = ".org"
	scheduledForm = "2006-01-02 Mon 15:04"
)

// Store reads and writes outline files in a single directory,
// non-recursively. It implements task.Storage.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create outline dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load parses every outline file in the directory into flat task records.
// Malformed files and malformed records are skipped with a diagnostic,
// never returned as an error.
func (s *Store) Load() ([]task.Task, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read outline dir: %w", err)
	}
	var out []task.Task
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		tasks, err := parseFile(filepath.Join(s.dir, entry.Name()), entry.Name())
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping malformed outline file")
			continue
		}
		out = append(out, tasks...)
	}
	return out, nil
}

// Save rewrites every outline file from the full task set, grouped by the
// root task's origin file. Each file is replaced atomically.
func (s *Store) Save(tasks []task.Task) error {
	byID := make(map[string]task.Task, len(tasks))
	children := make(map[string][]string)
	var roots []string
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, t := range tasks {
		if t.ParentID != "" {
			if _, ok := byID[t.ParentID]; ok {
				children[t.ParentID] = append(children[t.ParentID], t.ID)
				continue
			}
		}
		roots = append(roots, t.ID)
	}
	sortByCreation(roots, byID)
	for parent := range children {
		sortByCreation(children[parent], byID)
	}

	// A subtree is never split across files: descendants follow their
	// root's origin file.
	rootsByFile := make(map[string][]string)
	for _, id := range roots {
		file := byID[id].OriginFile
		if file == "" {
			file = DefaultFile
		}
		rootsByFile[file] = append(rootsByFile[file], id)
	}

	for file, fileRoots := range rootsByFile {
		if err := s.writeFile(file, fileRoots, byID, children); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeFile(name string, roots []string, byID map[string]task.Task, children map[string][]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "#+TITLE: %s\n\n", strings.TrimSuffix(name, extension))
	for _, id := range roots {
		writeNode(&b, id, 1, byID, children)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp outline file: %w", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write outline file %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close outline file %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace outline file %s: %w", name, err)
	}
	return nil
}

func writeNode(b *strings.Builder, id string, depth int, byID map[string]task.Task, children map[string][]string) {
	t := byID[id]

	b.WriteString(strings.Repeat("*", depth))
	b.WriteByte(' ')
	if t.Status != task.StatusTodo {
		b.WriteString(string(t.Status))
		b.WriteByte(' ')
	}
	b.WriteString(t.Title)
	if len(t.Tags) > 0 {
		fmt.Fprintf(b, " :%s:", strings.Join(t.Tags, ":"))
	}
	b.WriteByte('\n')

	if t.DueDate != nil {
		fmt.Fprintf(b, "SCHEDULED: <%s>\n", t.DueDate.Format(scheduledForm))
	}

	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(b, ":id: %s\n", t.ID)
	if t.ParentID != "" {
		fmt.Fprintf(b, ":parent_id: %s\n", t.ParentID)
	}
	if t.Author != "" {
		fmt.Fprintf(b, ":author: %s\n", t.Author)
	}
	fmt.Fprintf(b, ":status: %s\n", t.Status)
	fmt.Fprintf(b, ":priority: %s\n", t.Priority)
	fmt.Fprintf(b, ":created_at: %s\n", t.CreatedAt.Format(time.RFC3339))
	if !t.ReminderEnabled {
		b.WriteString(":reminder_enabled: false\n")
	}
	if t.ReminderMinutes != task.DefaultReminderLead {
		fmt.Fprintf(b, ":reminder_minutes: %d\n", t.ReminderMinutes)
	}
	b.WriteString(":END:\n\n")

	if t.Description != "" {
		b.WriteString(strings.TrimSpace(t.Description))
		b.WriteString("\n\n")
	}

	for _, child := range children[id] {
		writeNode(b, child, depth+1, byID, children)
	}
}

func sortByCreation(ids []string, byID map[string]task.Task) {
	sort.Slice(ids, func(i, j int) bool {
		left, right := byID[ids[i]], byID[ids[j]]
		if !left.CreatedAt.Equal(right.CreatedAt) {
			return left.CreatedAt.Before(right.CreatedAt)
		}
		return left.ID < right.ID
	})
}
