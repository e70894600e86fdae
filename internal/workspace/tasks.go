package workspace

import (
	"context"
	"encoding/json"
	"strings"

	templater "github.com/lapluviosilla/amplenote-templater"
)

// Tasks are plain markdown checkbox lines. The workspace stamps each one
// with a trailing metadata comment carrying its identifier and schedule:
//
//	- [ ] call the vet <!-- {"uuid":"tsk_01J...","startAt":1718188200} -->
//
// The stamp happens on write (ReplaceContent), which is the local stand-in
// for a host assigning task IDs when a document is saved.

type taskMeta struct {
	UUID      string `json:"uuid"`
	StartAt   int64  `json:"startAt,omitempty"`
	HideUntil int64  `json:"hideUntil,omitempty"`
}

func parseTaskComment(comment string) (taskMeta, bool) {
	s := strings.TrimSpace(comment)
	if !strings.HasPrefix(s, "<!--") || !strings.HasSuffix(s, "-->") {
		return taskMeta{}, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "<!--"), "-->"))
	var meta taskMeta
	if err := json.Unmarshal([]byte(s), &meta); err != nil || meta.UUID == "" {
		return taskMeta{}, false
	}
	return meta, true
}

func renderTaskComment(meta taskMeta) string {
	b, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return "<!-- " + string(b) + " -->"
}

// splitTaskLine cuts a task line into its marker prefix (indent plus
// checkbox), the description, and any trailing comment.
func splitTaskLine(line string) (prefix, desc, comment string, ok bool) {
	if templater.ContextForLine(line).Kind != templater.MarkerTask {
		return "", "", "", false
	}
	i := strings.Index(line, "]") + 1
	prefix, rest := line[:i], line[i:]
	if strings.HasPrefix(rest, " ") {
		prefix += " "
		rest = rest[1:]
	}
	if j := strings.LastIndex(rest, "<!--"); j >= 0 && strings.HasSuffix(strings.TrimRight(rest, " \t"), "-->") {
		return prefix, strings.TrimRight(rest[:j], " \t"), strings.TrimRight(rest[j:], " \t"), true
	}
	return prefix, strings.TrimRight(rest, " \t"), "", true
}

// assignTaskIDs stamps a fresh identifier onto every task line that does
// not already carry one. Lines with an existing comment are left alone.
func assignTaskIDs(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		prefix, desc, comment, ok := splitTaskLine(line)
		if !ok || comment != "" {
			continue
		}
		lines[i] = prefix + desc + " " + renderTaskComment(taskMeta{UUID: newTaskID()})
	}
	return strings.Join(lines, "\n")
}

// taskLocation pins a task line to its note file.
type taskLocation struct {
	path    string
	lineIdx int
	prefix  string
	desc    string
	meta    taskMeta
}

func (w *Workspace) findTask(id string) (*taskLocation, error) {
	infos, err := w.ListNotes()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		_, body, err := readNoteFile(info.Path)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(body, "\n") {
			prefix, desc, comment, ok := splitTaskLine(line)
			if !ok || comment == "" {
				continue
			}
			meta, ok := parseTaskComment(comment)
			if !ok || meta.UUID != id {
				continue
			}
			return &taskLocation{path: info.Path, lineIdx: i, prefix: prefix, desc: desc, meta: meta}, nil
		}
	}
	return nil, nil
}

// GetTask looks a task up by identifier across every note. A task that
// does not exist (yet) is (nil, nil).
func (w *Workspace) GetTask(ctx context.Context, id string) (*templater.Task, error) {
	loc, err := w.findTask(id)
	if err != nil || loc == nil {
		return nil, err
	}
	return &templater.Task{
		ID:        loc.meta.UUID,
		Content:   loc.desc,
		StartAt:   loc.meta.StartAt,
		HideUntil: loc.meta.HideUntil,
	}, nil
}

// UpdateTask patches a task line in place. Unknown identifiers are
// ErrNotFound.
func (w *Workspace) UpdateTask(ctx context.Context, id string, patch templater.TaskPatch) error {
	loc, err := w.findTask(id)
	if err != nil {
		return err
	}
	if loc == nil {
		return ErrNotFound
	}
	if patch.Content != nil {
		loc.desc = *patch.Content
	}
	if patch.StartAt != nil {
		loc.meta.StartAt = *patch.StartAt
	}
	if patch.HideUntil != nil {
		loc.meta.HideUntil = *patch.HideUntil
	}

	meta, body, err := readNoteFile(loc.path)
	if err != nil {
		return err
	}
	lines := strings.Split(body, "\n")
	if loc.lineIdx >= len(lines) {
		return ErrNotFound
	}
	lines[loc.lineIdx] = loc.prefix + loc.desc + " " + renderTaskComment(loc.meta)
	now := timeNow()
	meta.UpdatedAt = &now
	return writeNoteFile(loc.path, *meta, strings.Join(lines, "\n"))
}
