package templater

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DirectiveKind distinguishes the two task scheduling directives.
type DirectiveKind int

const (
	DirectiveStart DirectiveKind = iota
	DirectiveHide
)

func (k DirectiveKind) String() string {
	if k == DirectiveHide {
		return "hide"
	}
	return "start"
}

// TaskDirective is one start/hide directive lifted off a task line: the
// directive kind, the original bracket text, the resolved Unix timestamp,
// and the owning task. TaskID stays empty until the task is identifiable,
// either from an inline metadata comment or by description remapping after
// the host store assigns identifiers.
type TaskDirective struct {
	Kind        DirectiveKind
	Expression  string
	Timestamp   int64
	TaskID      string
	Description string

	lineSeq int // ordinal of the owning task line within one extraction
}

// splitDirective splits "{start:...}"/"{hide:...}" bracket text into its
// kind and inner expression. ok is false for plain expressions.
func splitDirective(raw string) (DirectiveKind, string, bool) {
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return 0, "", false
	}
	inner := raw[1 : len(raw)-1]
	switch {
	case strings.HasPrefix(inner, "start:"):
		return DirectiveStart, inner[len("start:"):], true
	case strings.HasPrefix(inner, "hide:"):
		return DirectiveHide, inner[len("hide:"):], true
	}
	return 0, "", false
}

// taskMeta is the host's inline task metadata comment payload.
type taskMeta struct {
	UUID string `json:"uuid"`
}

// taskLineMeta extracts the task identifier from a line's inline metadata
// comment (`<!-- {"uuid":"..."} -->`), returning the comment's span so
// callers can strip it.
func taskLineMeta(line string) (id string, start, end int, ok bool) {
	open := strings.Index(line, "<!--")
	if open < 0 {
		return "", 0, 0, false
	}
	rel := strings.Index(line[open:], "-->")
	if rel < 0 {
		return "", 0, 0, false
	}
	end = open + rel + len("-->")
	var meta taskMeta
	if err := json.Unmarshal([]byte(strings.TrimSpace(line[open+len("<!--"):open+rel])), &meta); err != nil {
		return "", 0, 0, false
	}
	if meta.UUID == "" {
		return "", 0, 0, false
	}
	return meta.UUID, open, end, true
}

// taskDescription returns the cleaned description of a task line: list
// marker, checkbox, and metadata comment removed, ends trimmed. Directive
// remapping matches on this.
func taskDescription(line string) string {
	rest := line
	if _, kind, r, ok := parseListMarker(line); ok && kind == MarkerTask {
		rest = r
	}
	if _, s, e, ok := taskLineMeta(rest); ok {
		rest = rest[:s] + rest[e:]
	}
	return strings.TrimSpace(rest)
}

// stripTaskMetadata removes inline metadata comments from task lines.
// Template text copied out of a stored note carries the template's own
// task identifiers; the inserted copies are new tasks, so the stale
// identifiers must not survive into the expansion.
func stripTaskMetadata(doc string) string {
	var out strings.Builder
	out.Grow(len(doc))
	first := true
	forEachLine(doc, func(_ int, line string) {
		if !first {
			out.WriteByte('\n')
		}
		first = false
		if isTaskLine(line) {
			if _, s, e, ok := taskLineMeta(line); ok {
				line = strings.TrimRight(line[:s]+line[e:], " \t")
			}
		}
		out.WriteString(line)
	})
	return out.String()
}

// extractTaskDirectives removes every resolvable start/hide directive from
// the document's task lines and returns the cleaned text plus one
// TaskDirective per removal. A directive whose expression does not resolve
// to a date kind stays in the text untouched.
func extractTaskDirectives(doc string, ref time.Time) (string, []TaskDirective) {
	var out strings.Builder
	out.Grow(len(doc))
	var dirs []TaskDirective
	first := true
	seq := 0
	forEachLine(doc, func(_ int, line string) {
		if !first {
			out.WriteByte('\n')
		}
		first = false
		if !isTaskLine(line) {
			out.WriteString(line)
			return
		}
		cleaned, lineDirs := extractLineDirectives(line, ref)
		if len(lineDirs) > 0 {
			id, _, _, _ := taskLineMeta(cleaned)
			desc := taskDescription(cleaned)
			for i := range lineDirs {
				lineDirs[i].TaskID = id
				lineDirs[i].Description = desc
				lineDirs[i].lineSeq = seq
			}
			dirs = append(dirs, lineDirs...)
			seq++
		}
		out.WriteString(cleaned)
	})
	return out.String(), dirs
}

// extractLineDirectives strips resolvable directives from a single task
// line. Offsets shift after each removal, so the line is rescanned until
// no directive resolves.
func extractLineDirectives(line string, ref time.Time) (string, []TaskDirective) {
	var dirs []TaskDirective
	for {
		removed := false
		for _, bs := range scanBraces(line) {
			raw := line[bs.start:bs.end]
			kind, expr, ok := splitDirective(raw)
			if !ok {
				continue
			}
			res := Evaluate("{"+strings.TrimSpace(expr)+"}", ref)
			if !res.IsDateKind() {
				continue
			}
			line = strings.TrimRight(line[:bs.start]+line[bs.end:], " \t")
			dirs = append(dirs, TaskDirective{
				Kind:       kind,
				Expression: raw,
				Timestamp:  res.Instant.Unix(),
			})
			removed = true
			break
		}
		if !removed {
			return line, dirs
		}
	}
}

// remapDirectives fills in missing task identifiers by matching cleaned
// descriptions against the written note content. Directives from the same
// original line share one task; a matched content line is claimed and not
// reused for a different line's directives.
func remapDirectives(content string, dirs []TaskDirective) []TaskDirective {
	type lineTask struct {
		id   string
		desc string
	}
	var found []lineTask
	forEachLine(content, func(_ int, line string) {
		if !isTaskLine(line) {
			return
		}
		id, _, _, ok := taskLineMeta(line)
		if !ok {
			return
		}
		found = append(found, lineTask{id: id, desc: taskDescription(line)})
	})

	out := make([]TaskDirective, len(dirs))
	copy(out, dirs)
	claimed := make(map[int]bool)
	seqID := make(map[int]string)
	for i := range out {
		if out[i].TaskID != "" {
			continue
		}
		if id, ok := seqID[out[i].lineSeq]; ok {
			out[i].TaskID = id
			continue
		}
		for j, lt := range found {
			if claimed[j] || lt.desc != out[i].Description {
				continue
			}
			claimed[j] = true
			seqID[out[i].lineSeq] = lt.id
			out[i].TaskID = lt.id
			break
		}
	}
	return out
}

// RetryPolicy bounds the wait for a task to become visible in the task
// store: poll every Interval until Deadline has elapsed.
type RetryPolicy struct {
	Interval time.Duration
	Deadline time.Duration
}

var defaultRetry = RetryPolicy{Interval: time.Second, Deadline: 10 * time.Second}

// sleepFunc suspends for a duration or until the context is done. Tests
// substitute one that advances a fake clock instead of sleeping.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// awaitTask polls the store until the task becomes visible or the policy
// deadline elapses. Newly inserted tasks may take a while to show up in
// the host store.
func awaitTask(ctx context.Context, store TaskStore, id string, policy RetryPolicy, now func() time.Time, sleep sleepFunc) (*Task, error) {
	start := now()
	for {
		t, err := store.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
		if now().Sub(start)+policy.Interval > policy.Deadline {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotVisible, id)
		}
		if err := sleep(ctx, policy.Interval); err != nil {
			return nil, err
		}
	}
}

// taskUpdate is the merged patch for one task. A line carrying both a
// start and a hide directive produces a single update.
type taskUpdate struct {
	id    string
	patch TaskPatch
}

// mergeDirectives groups resolved directives into one update per task,
// preserving first-seen order. Directives without a task identifier are
// returned separately as unmatched.
func mergeDirectives(dirs []TaskDirective) (updates []taskUpdate, unmatched []TaskDirective) {
	index := make(map[string]int)
	for _, d := range dirs {
		if d.TaskID == "" {
			unmatched = append(unmatched, d)
			continue
		}
		i, ok := index[d.TaskID]
		if !ok {
			i = len(updates)
			index[d.TaskID] = i
			updates = append(updates, taskUpdate{id: d.TaskID})
		}
		ts := d.Timestamp
		switch d.Kind {
		case DirectiveStart:
			updates[i].patch.StartAt = &ts
		case DirectiveHide:
			updates[i].patch.HideUntil = &ts
		}
	}
	return updates, unmatched
}

// applyDirectives persists merged directive updates through the task
// store, one goroutine per task, all joined before returning. A task that
// never becomes visible or fails to update is skipped and logged; sibling
// updates proceed.
func applyDirectives(ctx context.Context, store TaskStore, updates []taskUpdate, policy RetryPolicy, now func() time.Time, sleep sleepFunc, log *slog.Logger) (updated, skipped []string) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, u := range updates {
		wg.Add(1)
		go func(u taskUpdate) {
			defer wg.Done()
			err := applyUpdate(ctx, store, u, policy, now, sleep)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("task update skipped",
					slog.String("task", u.id),
					slog.Any("error", err))
				skipped = append(skipped, u.id)
				return
			}
			updated = append(updated, u.id)
		}(u)
	}
	wg.Wait()
	return updated, skipped
}

func applyUpdate(ctx context.Context, store TaskStore, u taskUpdate, policy RetryPolicy, now func() time.Time, sleep sleepFunc) error {
	if _, err := awaitTask(ctx, store, u.id, policy, now, sleep); err != nil {
		return err
	}
	if err := store.UpdateTask(ctx, u.id, u.patch); err != nil {
		return fmt.Errorf("update task %s: %w", u.id, err)
	}
	return nil
}
