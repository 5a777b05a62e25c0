// Package remind polls the task tree for due-date events and delivers
// each one exactly once. The scheduler owns no task data: every tick it
// reads a fresh snapshot and hands immutable event records to a Notifier;
// the dedup ledger is the only state it keeps.
package remind

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/neuroplan/internal/task"
)

// Kind identifies the reminder event type.
type Kind string

// Reminder event kinds.
const (
	KindDueDate   Kind = "due_date"
	KindBeforeDue Kind = "before_due"
	KindOverdue   Kind = "overdue"
)

// overdueLead is the fixed delay after the due date before the overdue
// event fires.
const overdueLead = 30 * time.Minute

// DefaultInterval is the default polling period.
const DefaultInterval = 30 * time.Second

// Event is one reminder occurrence. Its identity is derived from the
// task id, the due date, and the kind, so editing a task's due date
// retires the old events and generates new ones.
type Event struct {
	TaskID      string
	Kind        Kind
	TriggerTime time.Time
	Message     string
}

// Identity returns the dedup key for an event against the given due date.
func (e Event) Identity(due time.Time) string {
	return fmt.Sprintf("%s|%s|%s", e.TaskID, due.UTC().Format(time.RFC3339), e.Kind)
}

// TaskSource supplies the tasks eligible for reminders. *task.Manager
// satisfies it.
type TaskSource interface {
	WithDueDates() []task.Task
}

// Notifier delivers one event. A returned error leaves the event
// unrecorded so it is retried on a later tick.
type Notifier interface {
	Notify(Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event) error

// Notify calls the function.
func (f NotifierFunc) Notify(e Event) error { return f(e) }

// Ledger tracks delivered event identities.
type Ledger interface {
	Seen(identity string) (bool, error)
	MarkSent(identity string, at time.Time) error
}

// Scheduler is the background reminder loop.
type Scheduler struct {
	source   TaskSource
	notifier Notifier
	ledger   Ledger
	interval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler. A non-positive interval falls back to
// DefaultInterval.
func NewScheduler(source TaskSource, notifier Notifier, ledger Ledger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		ledger:   ledger,
		interval: interval,
	}
}

// Start launches the background loop. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	log.Debug().Dur("interval", s.interval).Msg("reminder scheduler started")
}

// Stop interrupts the loop and waits briefly for the current tick to
// finish. The wait is bounded; Stop returns even if the goroutine has
// not fully exited. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		log.Warn().Msg("reminder scheduler did not stop in time")
	}
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(time.Now())
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick evaluates every due-dated task against now and delivers any
// pending events. A failure on one task never aborts the rest.
func (s *Scheduler) Tick(now time.Time) {
	for _, t := range s.source.WithDueDates() {
		if t.Status == task.StatusDone || !t.ReminderEnabled || t.DueDate == nil {
			continue
		}
		for _, ev := range candidates(t) {
			if ev.TriggerTime.After(now) {
				continue
			}
			identity := ev.Identity(*t.DueDate)
			seen, err := s.ledger.Seen(identity)
			if err != nil {
				log.Error().Err(err).Str("task_id", t.ID).Msg("reminder ledger read failed")
				continue
			}
			if seen {
				continue
			}
			if err := s.notifier.Notify(ev); err != nil {
				log.Error().Err(err).Str("task_id", t.ID).Str("kind", string(ev.Kind)).Msg("reminder delivery failed")
				continue
			}
			if err := s.ledger.MarkSent(identity, now); err != nil {
				log.Error().Err(err).Str("task_id", t.ID).Msg("reminder ledger write failed")
			}
		}
	}
}

// Upcoming lists undelivered events triggering within the window from
// now, soonest first.
func (s *Scheduler) Upcoming(now time.Time, window time.Duration) []Event {
	cutoff := now.Add(window)
	var out []Event
	for _, t := range s.source.WithDueDates() {
		if t.Status == task.StatusDone || !t.ReminderEnabled || t.DueDate == nil {
			continue
		}
		for _, ev := range candidates(t) {
			if ev.TriggerTime.Before(now) || ev.TriggerTime.After(cutoff) {
				continue
			}
			seen, err := s.ledger.Seen(ev.Identity(*t.DueDate))
			if err != nil || seen {
				continue
			}
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggerTime.Before(out[j].TriggerTime) })
	return out
}

// candidates builds the three potential events for a due-dated task.
func candidates(t task.Task) []Event {
	due := *t.DueDate
	lead := t.ReminderMinutes
	if lead < 1 {
		lead = task.DefaultReminderLead
	}
	return []Event{
		{
			TaskID:      t.ID,
			Kind:        KindBeforeDue,
			TriggerTime: due.Add(-time.Duration(lead) * time.Minute),
			Message:     messageFor(t, fmt.Sprintf("Task due in %d minutes: %s", lead, t.Title)),
		},
		{
			TaskID:      t.ID,
			Kind:        KindDueDate,
			TriggerTime: due,
			Message:     messageFor(t, "Task due now: "+t.Title),
		},
		{
			TaskID:      t.ID,
			Kind:        KindOverdue,
			TriggerTime: due.Add(overdueLead),
			Message:     messageFor(t, "Task is overdue: "+t.Title),
		},
	}
}

// messageFor augments the headline with author and a description preview,
// matching what the notification surface renders.
func messageFor(t task.Task, headline string) string {
	msg := headline
	if t.Author != "" {
		msg += "\nAuthor: " + t.Author
	}
	if t.Description != "" {
		preview := t.Description
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		msg += "\nDescription: " + preview
	}
	return msg
}
