package templater

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// testRef is the reference instant the suite resolves against: a
// Wednesday, in the Sunday-start week of June 9th through 15th.
var testRef = time.Date(2024, time.June, 12, 10, 30, 0, 0, time.UTC)

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func utcClock(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memHost fakes both host stores in memory. ReplaceContent stamps
// unidentified task lines with sequential metadata comments and registers
// the tasks, the way a real host assigns identifiers on write.
type memHost struct {
	mu       sync.Mutex
	notes    []*memNote
	tasks    map[string]*Task
	creates  []string
	nextNote int
	nextTask int

	stampOff bool
	delay    map[string]int // GetTask misses before a task becomes visible
	findErr  error
	getErr   error
	updErr   map[string]error
}

func newMemHost() *memHost {
	return &memHost{
		tasks:  make(map[string]*Task),
		delay:  make(map[string]int),
		updErr: make(map[string]error),
	}
}

type memNote struct {
	host    *memHost
	id      string
	name    string
	tags    []string
	content string
}

func (n *memNote) Content(ctx context.Context) (string, error) { return n.content, nil }

func (n *memNote) ReplaceContent(ctx context.Context, text string) error {
	n.content = n.host.stamp(text)
	return nil
}

func (n *memNote) URL() string { return "local://" + n.id }

func (h *memHost) addNote(name string, tags []string, content string) *memNote {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextNote++
	n := &memNote{
		host:    h,
		id:      fmt.Sprintf("n%d", h.nextNote),
		name:    name,
		tags:    tags,
		content: content,
	}
	h.notes = append(h.notes, n)
	return n
}

func (h *memHost) FindNote(ctx context.Context, q NoteQuery) (Note, error) {
	if h.findErr != nil {
		return nil, h.findErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.notes {
		if !strings.EqualFold(n.name, q.Name) {
			continue
		}
		if q.Tag != "" && !memHasTag(n.tags, q.Tag) {
			continue
		}
		return n, nil
	}
	return nil, nil
}

func (h *memHost) CreateNote(ctx context.Context, name string, tags []string) (Note, error) {
	n := h.addNote(name, tags, "")
	h.mu.Lock()
	h.creates = append(h.creates, name)
	h.mu.Unlock()
	return n, nil
}

func (h *memHost) stamp(text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stampOff {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !isTaskLine(line) {
			continue
		}
		if _, _, _, ok := taskLineMeta(line); ok {
			continue
		}
		h.nextTask++
		id := fmt.Sprintf("m%d", h.nextTask)
		lines[i] = line + ` <!-- {"uuid":"` + id + `"} -->`
		h.tasks[id] = &Task{ID: id, Content: taskDescription(lines[i])}
	}
	return strings.Join(lines, "\n")
}

func (h *memHost) GetTask(ctx context.Context, id string) (*Task, error) {
	if h.getErr != nil {
		return nil, h.getErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.delay[id] > 0 {
		h.delay[id]--
		return nil, nil
	}
	t, ok := h.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (h *memHost) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.updErr[id]; err != nil {
		return err
	}
	t, ok := h.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}
	if patch.StartAt != nil {
		t.StartAt = *patch.StartAt
	}
	if patch.HideUntil != nil {
		t.HideUntil = *patch.HideUntil
	}
	return nil
}

func memHasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// fakeClock replaces the real clock and sleep in retry tests: sleeping
// advances the clock instead of waiting.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{t: start} }

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
	return nil
}
