package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	templater "github.com/lapluviosilla/amplenote-templater"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	if err := w.Init(); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	return w
}

func TestInitCreatesLayout(t *testing.T) {
	root := t.TempDir()
	w, err := Open(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	if err := w.Init(); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "notes")); err != nil {
		t.Fatalf("expected notes directory, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "config.json")); err != nil {
		t.Fatalf("expected config file, got %v", err)
	}
	if got := w.Config().TemplateTag; got != "templates" {
		t.Fatalf("expected default template tag %q, got %q", "templates", got)
	}
}

func TestInitKeepsExistingConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "config.json"), []byte(`{"schema":1,"template_tag":"snippets"}`), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	w, err := Open(root)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	if err := w.Init(); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	if got := w.Config().TemplateTag; got != "snippets" {
		t.Fatalf("expected template tag %q, got %q", "snippets", got)
	}
}

func TestCreateAndFindNote(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	created, err := w.CreateNote(ctx, "Weekly Review", []string{"rituals"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if !strings.HasPrefix(created.URL(), "local://notes/") {
		t.Fatalf("expected local note URL, got %q", created.URL())
	}

	found, err := w.FindNote(ctx, templater.NoteQuery{Name: "weekly review"})
	if err != nil {
		t.Fatalf("find note: %v", err)
	}
	if found == nil {
		t.Fatalf("expected case-insensitive match, got none")
	}
	if found.URL() != created.URL() {
		t.Fatalf("expected URL %q, got %q", created.URL(), found.URL())
	}

	missing, err := w.FindNote(ctx, templater.NoteQuery{Name: "No Such Note"})
	if err != nil {
		t.Fatalf("find note: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing note, got %q", missing.URL())
	}
}

func TestFindNoteNarrowsByTag(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	if _, err := w.CreateNote(ctx, "Standup", []string{"work"}); err != nil {
		t.Fatalf("create note: %v", err)
	}
	n, err := w.FindNote(ctx, templater.NoteQuery{Name: "Standup", Tag: "templates"})
	if err != nil {
		t.Fatalf("find note: %v", err)
	}
	if n != nil {
		t.Fatalf("expected no match under tag %q, got %q", "templates", n.URL())
	}
	n, err = w.FindNote(ctx, templater.NoteQuery{Name: "Standup", Tag: "work"})
	if err != nil {
		t.Fatalf("find note: %v", err)
	}
	if n == nil {
		t.Fatalf("expected match under tag %q", "work")
	}
}

func TestCreateNoteSlugCollision(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	first, err := w.CreateNote(ctx, "Plan", nil)
	if err != nil {
		t.Fatalf("create first note: %v", err)
	}
	second, err := w.CreateNote(ctx, "Plan", nil)
	if err != nil {
		t.Fatalf("create second note: %v", err)
	}
	if first.URL() == second.URL() {
		t.Fatalf("expected distinct note IDs, both %q", first.URL())
	}
	if _, err := os.Stat(filepath.Join(w.Root, "notes", "plan.md")); err != nil {
		t.Fatalf("expected plan.md, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(w.Root, "notes", "plan-2.md")); err != nil {
		t.Fatalf("expected plan-2.md, got %v", err)
	}
}

func TestReplaceContentStampsTaskIDs(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	n, err := w.CreateNote(ctx, "Chores", nil)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if err := n.ReplaceContent(ctx, "- [ ] water the plants\nplain line\n- [x] done already\n"); err != nil {
		t.Fatalf("replace content: %v", err)
	}
	body, err := n.Content(ctx)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	lines := strings.Split(body, "\n")
	_, _, comment, ok := splitTaskLine(lines[0])
	if !ok || comment == "" {
		t.Fatalf("expected stamped task line, got %q", lines[0])
	}
	meta, ok := parseTaskComment(comment)
	if !ok {
		t.Fatalf("expected parseable comment, got %q", comment)
	}
	if !strings.HasPrefix(meta.UUID, "tsk_") {
		t.Fatalf("expected tsk_ identifier, got %q", meta.UUID)
	}
	if strings.Contains(lines[1], "<!--") {
		t.Fatalf("expected plain line untouched, got %q", lines[1])
	}

	// A rewrite must not reassign existing identifiers.
	if err := n.ReplaceContent(ctx, body); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	body2, err := n.Content(ctx)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	_, _, comment2, _ := splitTaskLine(strings.Split(body2, "\n")[0])
	if comment2 != comment {
		t.Fatalf("expected stable identifier %q, got %q", comment, comment2)
	}
}

func TestGetTaskAndUpdateTask(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	n, err := w.CreateNote(ctx, "Errands", nil)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if err := n.ReplaceContent(ctx, "- [ ] mail the form\n"); err != nil {
		t.Fatalf("replace content: %v", err)
	}
	body, _ := n.Content(ctx)
	_, _, comment, _ := splitTaskLine(strings.Split(body, "\n")[0])
	meta, _ := parseTaskComment(comment)

	task, err := w.GetTask(ctx, meta.UUID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task == nil {
		t.Fatalf("expected task %q to be visible", meta.UUID)
	}
	if task.Content != "mail the form" {
		t.Fatalf("expected description %q, got %q", "mail the form", task.Content)
	}

	startAt := int64(1718188200)
	if err := w.UpdateTask(ctx, meta.UUID, templater.TaskPatch{StartAt: &startAt}); err != nil {
		t.Fatalf("update task: %v", err)
	}
	task, err = w.GetTask(ctx, meta.UUID)
	if err != nil {
		t.Fatalf("get task after update: %v", err)
	}
	if task.StartAt != startAt {
		t.Fatalf("expected start %d, got %d", startAt, task.StartAt)
	}

	missing, err := w.GetTask(ctx, "tsk_NOPE")
	if err != nil {
		t.Fatalf("get missing task: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown task, got %+v", missing)
	}
	if err := w.UpdateTask(ctx, "tsk_NOPE", templater.TaskPatch{StartAt: &startAt}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDailyNoteFindOrCreate(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()
	ref := time.Date(2024, time.June, 12, 10, 30, 0, 0, time.UTC)

	first, err := w.DailyNote(ctx, ref)
	if err != nil {
		t.Fatalf("daily note: %v", err)
	}
	second, err := w.DailyNote(ctx, ref)
	if err != nil {
		t.Fatalf("daily note again: %v", err)
	}
	if first.URL() != second.URL() {
		t.Fatalf("expected one daily note, got %q and %q", first.URL(), second.URL())
	}
	n, err := w.FindNote(ctx, templater.NoteQuery{Name: "June 12th, 2024", Tag: DailyTag})
	if err != nil {
		t.Fatalf("find daily note: %v", err)
	}
	if n == nil {
		t.Fatalf("expected daily note named %q", "June 12th, 2024")
	}
}

func TestTemplatesListsTaggedNotes(t *testing.T) {
	w := newTestWorkspace(t)
	ctx := context.Background()

	if _, err := w.CreateNote(ctx, "Meeting Notes", []string{"templates"}); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := w.CreateNote(ctx, "Scratch", nil); err != nil {
		t.Fatalf("create note: %v", err)
	}
	tpls, err := w.Templates()
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(tpls) != 1 || tpls[0].Name != "Meeting Notes" {
		t.Fatalf("expected one template %q, got %#v", "Meeting Notes", tpls)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Weekly Review", "weekly-review"},
		{"June 12th, 2024", "june-12th-2024"},
		{"  !!  ", "x"},
		{"Already-Slugged", "already-slugged"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Fatalf("slugify(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSplitTaskLine(t *testing.T) {
	prefix, desc, comment, ok := splitTaskLine(`  - [ ] feed cat <!-- {"uuid":"tsk_A"} -->`)
	if !ok {
		t.Fatalf("expected task line to parse")
	}
	if prefix != "  - [ ] " {
		t.Fatalf("expected prefix %q, got %q", "  - [ ] ", prefix)
	}
	if desc != "feed cat" {
		t.Fatalf("expected description %q, got %q", "feed cat", desc)
	}
	if comment != `<!-- {"uuid":"tsk_A"} -->` {
		t.Fatalf("unexpected comment %q", comment)
	}
	if _, _, _, ok := splitTaskLine("- plain bullet"); ok {
		t.Fatalf("expected bullet line to be rejected")
	}
}
