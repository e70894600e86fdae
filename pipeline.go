package templater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTemplateTag marks template notes when Config leaves the tag
// unset.
const DefaultTemplateTag = "templates"

// Config carries the pipeline's knobs. The zero value works: real clock,
// process-default logger, default retry policy, the default template tag,
// and footnote generation on.
type Config struct {
	// Now supplies the reference instant expressions resolve against.
	Now func() time.Time
	// Logger receives the pipeline's log records.
	Logger slog.Handler
	// Retry bounds the wait for freshly written tasks to become visible
	// in the task store.
	Retry RetryPolicy
	// TemplateTag is the tag that marks notes as templates.
	TemplateTag string
	// SuppressFootnotes substitutes values plainly everywhere instead of
	// generating footnote references outside link and task contexts.
	SuppressFootnotes bool
}

// Pipeline expands templates against a pair of host stores.
type Pipeline struct {
	notes NoteStore
	tasks TaskStore
	cfg   Config
	log   *slog.Logger
	sleep sleepFunc
}

// New builds a pipeline over the host collaborators, filling config
// defaults.
func New(notes NoteStore, tasks TaskStore, cfg Config) (*Pipeline, error) {
	if notes == nil {
		return nil, fmt.Errorf("%w: nil note store", ErrInvalid)
	}
	if tasks == nil {
		return nil, fmt.Errorf("%w: nil task store", ErrInvalid)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().Handler()
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = defaultRetry
	}
	if cfg.TemplateTag == "" {
		cfg.TemplateTag = DefaultTemplateTag
	}
	return &Pipeline{
		notes: notes,
		tasks: tasks,
		cfg:   cfg,
		log:   slog.New(cfg.Logger).With(slog.String("component", "templater")),
		sleep: sleepContext,
	}, nil
}

// TemplateTag returns the tag that marks template notes.
func (p *Pipeline) TemplateTag() string { return p.cfg.TemplateTag }

// Expansion is the outcome of expanding one piece of template text.
type Expansion struct {
	Text       string
	Footnotes  []Footnote
	Directives []TaskDirective
}

// ExpandText runs the text stages over one document: expression
// substitution, link resolution, task-directive extraction, and the
// footnote block. Directives carry task identifiers only where their
// lines already had metadata comments; Run fills the rest in after the
// host store assigns them.
func (p *Pipeline) ExpandText(ctx context.Context, text string) (Expansion, error) {
	exp, err := p.expandStages(ctx, text)
	if err != nil {
		return Expansion{}, err
	}
	exp.Text = appendFootnoteBlock(exp.Text, exp.Footnotes)
	return exp, nil
}

// expandStages is ExpandText without the footnote block, for callers that
// splice the body into a larger document first.
func (p *Pipeline) expandStages(ctx context.Context, text string) (Expansion, error) {
	ref := p.cfg.Now()
	body, notes := substituteExpressions(text, ref, p.cfg.SuppressFootnotes)
	body, err := resolveLinks(ctx, p.notes, body, ref)
	if err != nil {
		return Expansion{}, err
	}
	body, dirs := extractTaskDirectives(body, ref)
	return Expansion{Text: body, Footnotes: notes, Directives: dirs}, nil
}

// RunInput names one expansion: template text inserted into a target note
// at a line.
type RunInput struct {
	Template string
	Target   Note
	// Line is the 1-based insertion line within the target; zero or
	// out-of-range means the last line.
	Line int
}

// Report summarizes one pipeline run.
type Report struct {
	// Text is the note content the pipeline wrote (before any host-side
	// decoration such as metadata comments).
	Text         string
	Footnotes    []Footnote
	TasksUpdated []string
	TasksSkipped []string
	// Unidentified counts directives whose task line never became
	// identifiable in the written note.
	Unidentified int
}

// Run executes the full pipeline: expand the template, adjust its
// indentation to the insertion point, splice it into the target note,
// write the result, then persist task directives once the host store has
// assigned task identifiers. Directive failures are reported and logged,
// never fatal to the run.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*Report, error) {
	if in.Target == nil {
		return nil, fmt.Errorf("%w: nil target note", ErrInvalid)
	}
	if strings.TrimSpace(in.Template) == "" {
		return nil, fmt.Errorf("%w: empty template", ErrInvalid)
	}
	content, err := in.Target.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}

	exp, err := p.expandStages(ctx, stripTaskMetadata(in.Template))
	if err != nil {
		return nil, err
	}

	line := in.Line
	if n := lineCount(content); line <= 0 || line > n {
		line = n
	}
	adjusted := AdjustIndentation(exp.Text, ContextForLine(lineAt(content, line)))
	final := appendFootnoteBlock(insertAtLineEnd(content, adjusted, line), exp.Footnotes)
	if err := in.Target.ReplaceContent(ctx, final); err != nil {
		return nil, fmt.Errorf("write target: %w", err)
	}

	report := &Report{Text: final, Footnotes: exp.Footnotes}
	if len(exp.Directives) > 0 {
		written, err := in.Target.Content(ctx)
		if err != nil {
			return nil, fmt.Errorf("reread target: %w", err)
		}
		updates, unmatched := mergeDirectives(remapDirectives(written, exp.Directives))
		for _, d := range unmatched {
			p.log.Warn("task directive dropped: task line not identifiable",
				slog.String("kind", d.Kind.String()),
				slog.String("description", d.Description))
		}
		report.Unidentified = len(unmatched)
		report.TasksUpdated, report.TasksSkipped = applyDirectives(
			ctx, p.tasks, updates, p.cfg.Retry, p.cfg.Now, p.sleep, p.log)
	}
	p.log.Debug("pipeline run complete",
		slog.Int("footnotes", len(report.Footnotes)),
		slog.Int("tasks_updated", len(report.TasksUpdated)),
		slog.Int("tasks_skipped", len(report.TasksSkipped)))
	return report, nil
}

// lineCount reports how many lines the document has; the empty document
// has one.
func lineCount(doc string) int {
	return strings.Count(doc, "\n") + 1
}

// lineAt returns the 1-based line without its newline.
func lineAt(doc string, line int) string {
	start, end, ok := lineBounds(doc, line)
	if !ok {
		return ""
	}
	return doc[start:end]
}

// lineBounds returns the [start, end) byte range of the 1-based line,
// excluding its newline.
func lineBounds(doc string, line int) (start, end int, ok bool) {
	n := 1
	for {
		rel := strings.IndexByte(doc[start:], '\n')
		if n == line {
			if rel < 0 {
				return start, len(doc), true
			}
			return start, start + rel, true
		}
		if rel < 0 {
			return 0, 0, false
		}
		start += rel + 1
		n++
	}
}

// insertAtLineEnd splices text at the end of the 1-based line, before its
// newline.
func insertAtLineEnd(doc, text string, line int) string {
	_, end, ok := lineBounds(doc, line)
	if !ok {
		end = len(doc)
	}
	return doc[:end] + text + doc[end:]
}
