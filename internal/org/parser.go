package org

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/neuroplan/internal/task"
)

var (
	headingPattern  = regexp.MustCompile(`^(\*+)\s+(.*)$`)
	tagsPattern     = regexp.MustCompile(`\s+:([^:\s]+(?::[^:\s]+)*):\s*$`)
	propertyPattern = regexp.MustCompile(`^:([A-Za-z_][A-Za-z0-9_]*):\s*(.*)$`)
)

// record accumulates one heading node while scanning a file.
type record struct {
	headingStatus task.Status
	title         string
	tags          []string
	scheduled     *time.Time
	props         map[string]string
	body          []string
}

// parseFile reads one outline file into flat task records. A structural
// problem (unreadable file, unterminated drawer) fails the whole file;
// a bad individual record is skipped with a diagnostic.
func parseFile(path, name string) ([]task.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open outline file: %w", err)
	}
	defer f.Close()

	var (
		out     []task.Task
		current *record
	)
	flush := func() {
		if current == nil {
			return
		}
		if t, ok := current.toTask(name); ok {
			out = append(out, t)
		}
		current = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inDrawer := false
	for scanner.Scan() {
		line := scanner.Text()

		if match := headingPattern.FindStringSubmatch(line); match != nil {
			if inDrawer {
				return nil, fmt.Errorf("unterminated properties drawer before %q", line)
			}
			flush()
			current = newRecord(match[2])
			continue
		}
		if current == nil {
			// File preamble (#+TITLE and friends) lives outside any record.
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case inDrawer:
			if strings.EqualFold(trimmed, ":END:") {
				inDrawer = false
				continue
			}
			if match := propertyPattern.FindStringSubmatch(trimmed); match != nil {
				current.props[strings.ToLower(match[1])] = strings.TrimSpace(match[2])
			}
		case strings.EqualFold(trimmed, ":PROPERTIES:"):
			inDrawer = true
		case strings.HasPrefix(trimmed, "SCHEDULED:"):
			current.scheduled = parseScheduled(trimmed)
		default:
			current.body = append(current.body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan outline file: %w", err)
	}
	if inDrawer {
		return nil, fmt.Errorf("unterminated properties drawer at end of file")
	}
	flush()
	return out, nil
}

func newRecord(heading string) *record {
	r := &record{headingStatus: task.StatusTodo, props: map[string]string{}}

	if match := tagsPattern.FindStringSubmatch(heading); match != nil {
		r.tags = strings.Split(match[1], ":")
		heading = heading[:len(heading)-len(match[0])]
	}
	heading = strings.TrimSpace(heading)

	token, rest, found := strings.Cut(heading, " ")
	if found {
		if status, err := task.ParseStatus(token); err == nil {
			r.headingStatus = status
			heading = strings.TrimSpace(rest)
		}
	}
	r.title = heading
	return r
}

func parseScheduled(line string) *time.Time {
	start := strings.IndexByte(line, '<')
	end := strings.IndexByte(line, '>')
	if start < 0 || end <= start {
		return nil
	}
	t, err := time.ParseInLocation(scheduledForm, line[start+1:end], time.Local)
	if err != nil {
		log.Debug().Str("line", line).Msg("ignoring unparseable scheduled line")
		return nil
	}
	return &t
}

// toTask converts the accumulated record into a task. Records without an
// id, or with invalid status or priority metadata, are dropped.
func (r *record) toTask(file string) (task.Task, bool) {
	id := r.props["id"]
	if id == "" {
		log.Warn().Str("file", file).Str("title", r.title).Msg("skipping record without id")
		return task.Task{}, false
	}

	status := r.headingStatus
	if raw, ok := r.props["status"]; ok {
		parsed, err := task.ParseStatus(raw)
		if err != nil {
			log.Warn().Str("file", file).Str("task_id", id).Err(err).Msg("skipping record")
			return task.Task{}, false
		}
		status = parsed
	}
	priority := task.PriorityNone
	if raw, ok := r.props["priority"]; ok {
		parsed, err := task.ParsePriority(raw)
		if err != nil {
			log.Warn().Str("file", file).Str("task_id", id).Err(err).Msg("skipping record")
			return task.Task{}, false
		}
		priority = parsed
	}

	createdAt := time.Now()
	if raw, ok := r.props["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			createdAt = t
		}
	}

	due := r.scheduled
	if due == nil {
		if raw, ok := r.props["due_date"]; ok {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				due = &t
			}
		}
	}

	lead := task.DefaultReminderLead
	if raw, ok := r.props["reminder_minutes"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			lead = n
		}
	}
	enabled := true
	if raw, ok := r.props["reminder_enabled"]; ok {
		if b, err := strconv.ParseBool(raw); err == nil {
			enabled = b
		}
	}

	return task.Task{
		ID:              id,
		Title:           r.title,
		Description:     strings.TrimSpace(strings.Join(r.body, "\n")),
		Author:          r.props["author"],
		Status:          status,
		Priority:        priority,
		DueDate:         due,
		ReminderMinutes: lead,
		ReminderEnabled: enabled,
		Tags:            r.tags,
		ParentID:        r.props["parent_id"],
		CreatedAt:       createdAt,
		OriginFile:      file,
	}, true
}
