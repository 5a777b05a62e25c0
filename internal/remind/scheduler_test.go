package remind

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/neuroplan/internal/task"
)

// fakeSource returns a fresh copy of its tasks on every call, like the
// manager does.
type fakeSource struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (s *fakeSource) WithDueDates() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.DueDate != nil {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (s *fakeSource) set(tasks []task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
}

type captureNotifier struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (n *captureNotifier) Notify(e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("delivery refused")
	}
	n.events = append(n.events, e)
	return nil
}

func (n *captureNotifier) kinds() []Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Kind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

func dueTask(id string, due time.Time, lead int) task.Task {
	return task.Task{
		ID: id, Title: "task " + id, Status: task.StatusTodo, Priority: task.PriorityNone,
		DueDate: &due, ReminderMinutes: lead, ReminderEnabled: true, CreatedAt: due.Add(-24 * time.Hour),
	}
}

func TestTickEmitsEachEventExactlyOnce(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []task.Task{dueTask("t1", due, 30)}}
	notifier := &captureNotifier{}
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due.Add(-31 * time.Minute))
	assert.Empty(t, notifier.kinds(), "nothing fires before the lead window")

	s.Tick(due.Add(-29 * time.Minute))
	assert.Equal(t, []Kind{KindBeforeDue}, notifier.kinds())

	s.Tick(due)
	assert.Equal(t, []Kind{KindBeforeDue, KindDueDate}, notifier.kinds())

	s.Tick(due.Add(time.Minute))
	s.Tick(due.Add(time.Minute))
	assert.Equal(t, []Kind{KindBeforeDue, KindDueDate}, notifier.kinds(), "repeat ticks must not resend")

	s.Tick(due.Add(31 * time.Minute))
	assert.Equal(t, []Kind{KindBeforeDue, KindDueDate, KindOverdue}, notifier.kinds())

	s.Tick(due.Add(31 * time.Minute))
	assert.Len(t, notifier.kinds(), 3, "identities never fire twice")
}

func TestDisabledRemindersProduceNoEvents(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	silent := dueTask("t1", due, 30)
	silent.ReminderEnabled = false
	source := &fakeSource{tasks: []task.Task{silent}}
	notifier := &captureNotifier{}
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due.Add(time.Hour))
	assert.Empty(t, notifier.kinds())
}

func TestDoneTasksProduceNoEvents(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	finished := dueTask("t1", due, 30)
	finished.Status = task.StatusDone
	source := &fakeSource{tasks: []task.Task{finished}}
	notifier := &captureNotifier{}
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due.Add(time.Hour))
	assert.Empty(t, notifier.kinds())
}

func TestFailedDeliveryRetriesNextTick(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []task.Task{dueTask("t1", due, 30)}}
	notifier := &captureNotifier{fail: true}
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due)
	assert.Empty(t, notifier.kinds(), "failed deliveries record nothing")

	notifier.fail = false
	s.Tick(due)
	assert.Equal(t, []Kind{KindBeforeDue, KindDueDate}, notifier.kinds())
}

func TestChangingDueDateRegeneratesEvents(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []task.Task{dueTask("t1", due, 30)}}
	notifier := &captureNotifier{}
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due)
	require.Len(t, notifier.kinds(), 2)

	// The task slips by a day; its old identities stop matching and the
	// new due date produces fresh events.
	newDue := due.Add(24 * time.Hour)
	source.set([]task.Task{dueTask("t1", newDue, 30)})

	s.Tick(newDue)
	assert.Equal(t, []Kind{KindBeforeDue, KindDueDate, KindBeforeDue, KindDueDate}, notifier.kinds())
}

func TestOneBadTaskDoesNotStopTheTick(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []task.Task{
		dueTask("t1", due, 30),
		dueTask("t2", due, 30),
	}}
	// Refuse delivery for t1 only.
	var delivered []Event
	notifier := NotifierFunc(func(e Event) error {
		if e.TaskID == "t1" {
			return errors.New("no route to t1")
		}
		delivered = append(delivered, e)
		return nil
	})
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due)
	require.Len(t, delivered, 2)
	for _, e := range delivered {
		assert.Equal(t, "t2", e.TaskID)
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	s := NewScheduler(source, &captureNotifier{}, NewMemoryLedger(), 10*time.Millisecond)

	s.Start()
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestUpcomingListsPendingEventsInOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(2 * time.Hour)
	later := now.Add(6 * time.Hour)
	source := &fakeSource{tasks: []task.Task{
		dueTask("far", later, 30),
		dueTask("near", soon, 30),
	}}
	s := NewScheduler(source, &captureNotifier{}, NewMemoryLedger(), time.Second)

	events := s.Upcoming(now, 24*time.Hour)
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].TriggerTime.Before(events[i-1].TriggerTime), "events out of order")
	}
	assert.Equal(t, "near", events[0].TaskID)
}

func TestEventMessageIncludesContext(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rich := dueTask("t1", due, 30)
	rich.Author = "kim"
	rich.Description = "bring the slides"
	source := &fakeSource{tasks: []task.Task{rich}}
	notifier := &captureNotifier{}
	s := NewScheduler(source, notifier, NewMemoryLedger(), time.Second)

	s.Tick(due)
	require.NotEmpty(t, notifier.events)
	assert.Contains(t, notifier.events[0].Message, "Author: kim")
	assert.Contains(t, notifier.events[0].Message, "bring the slides")
}
