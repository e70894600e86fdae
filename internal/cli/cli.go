// Package cli implements the templater command-line surface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	templater "github.com/lapluviosilla/amplenote-templater"
	"github.com/lapluviosilla/amplenote-templater/internal/workspace"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitInternal = 10
)

type GlobalFlags struct {
	Root    string
	Ref     time.Time // zero means the wall clock
	JSON    bool
	Quiet   bool
	Verbose bool
}

// refTime is the reference instant expressions resolve against.
func (gf GlobalFlags) refTime() time.Time {
	if gf.Ref.IsZero() {
		return time.Now()
	}
	return gf.Ref
}

func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") {
				if i+1 < len(args) {
					flags = append(flags, args[i+1])
					i++
				}
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func Run(args []string) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return ExitUsage
	}

	if len(rest) == 0 {
		printHelp()
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]

	ws, err := workspace.Open(gf.Root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "templater:", err)
		return ExitInternal
	}

	switch cmd {
	case "help", "--help", "-h":
		printHelp()
		return ExitOK
	case "init":
		return cmdInit(ws, gf, cmdArgs)
	case "eval":
		return cmdEval(gf, cmdArgs)
	case "expand":
		return cmdExpand(ws, gf, cmdArgs)
	case "jot":
		return cmdJot(ws, gf, cmdArgs)
	case "notes", "ls":
		return cmdNotes(ws, gf, cmdArgs)
	case "templates":
		return cmdTemplates(ws, gf, cmdArgs)
	case "repl":
		return cmdRepl(ws, gf, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		return ExitUsage
	}
}

func printHelp() {
	fmt.Print(`templater: expression-expanding markdown templates

Usage:
  templater [global flags] <command> [args]

Global flags:
  --root <path>    Workspace root (default: ~/.templater or TEMPLATER_ROOT)
  --ref <rfc3339>  Reference instant for date expressions (default: now)
  --json           JSON output
  --quiet
  --verbose

Commands:
  init [--no-samples]
  eval "<expression>"
  expand --template "<name>" --target "<name>" [--line N]
  jot "<text>"
  notes
  templates
  repl

Expressions:
  {tomorrow at 3pm}  {next friday}  {"YYYY-MM-DD":today}  {2*(3+4)}
  [[note name]]  [[?only if it exists]]  [[_silent]]  [[name#Section]]  [[name|alias]]
  - [ ] task text {start:monday at 9am} {hide:sunday}
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	// Allow flags anywhere by scanning and stripping known globals.
	gf := GlobalFlags{}

	// Default root from env or home.
	if env := os.Getenv("TEMPLATER_ROOT"); env != "" {
		gf.Root = env
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			gf.Root = filepath.Join(home, ".templater")
		} else {
			gf.Root = ".templater"
		}
	}

	out := make([]string, 0, len(args))
	skip := 0

	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		switch a {
		case "--root":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--root requires a value")
			}
			gf.Root = args[i+1]
			skip = 1
		case "--ref":
			if i+1 >= len(args) {
				return gf, nil, errors.New("--ref requires a value")
			}
			t, err := time.Parse(time.RFC3339, args[i+1])
			if err != nil {
				return gf, nil, fmt.Errorf("--ref must be RFC3339 (e.g. 2024-06-12T10:30:00Z): %v", err)
			}
			gf.Ref = t
			skip = 1
		case "--json":
			gf.JSON = true
		case "--quiet":
			gf.Quiet = true
		case "--verbose":
			gf.Verbose = true
		default:
			out = append(out, a)
		}
	}
	return gf, out, nil
}

func logHandler(gf GlobalFlags) slog.Handler {
	level := slog.LevelInfo
	if gf.Verbose {
		level = slog.LevelDebug
	}
	if gf.Quiet {
		level = slog.LevelError
	}
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

func newPipeline(ws *workspace.Workspace, gf GlobalFlags) (*templater.Pipeline, error) {
	cfg := templater.Config{
		Logger:      logHandler(gf),
		TemplateTag: ws.Config().TemplateTag,
	}
	if !gf.Ref.IsZero() {
		ref := gf.Ref
		cfg.Now = func() time.Time { return ref }
	}
	return templater.New(ws, ws, cfg)
}

func cmdInit(ws *workspace.Workspace, gf GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	noSamples := fs.Bool("no-samples", false, "Skip the sample template notes")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if err := ws.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		return ExitInternal
	}
	created := 0
	if !*noSamples {
		n, err := seedSampleTemplates(context.Background(), ws)
		if err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			return ExitInternal
		}
		created = n
	}
	if !gf.Quiet {
		fmt.Println("Initialized templater workspace at:", ws.Root)
		if created > 0 {
			fmt.Printf("Created %d sample templates (tag %q); list them with: templater templates\n", created, ws.Config().TemplateTag)
		}
	}
	return ExitOK
}

// evalExpression accepts both braced and bare input; eval users rarely
// type the braces.
func evalExpression(raw string, ref time.Time) templater.Result {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		raw = "{" + raw + "}"
	}
	return templater.Evaluate(raw, ref)
}

func evalPayload(expr string, res templater.Result) map[string]any {
	payload := map[string]any{
		"expression": expr,
		"kind":       res.Kind.String(),
	}
	if res.Kind != templater.KindUnhandled {
		payload["value"] = res.Render()
	}
	if res.IsDateKind() {
		payload["instant"] = res.Instant.Format(time.RFC3339)
	}
	if res.Kind == templater.KindMath {
		payload["number"] = res.Number
	}
	return payload
}

func cmdEval(gf GlobalFlags, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: templater eval \"<expression>\"")
		return ExitUsage
	}
	expr := strings.Join(args, " ")
	res := evalExpression(expr, gf.refTime())

	if gf.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(evalPayload(expr, res))
	} else if res.Kind == templater.KindUnhandled {
		fmt.Fprintf(os.Stderr, "eval: unhandled expression: %s\n", expr)
	} else {
		fmt.Printf("%s\t%s\n", res.Kind, res.Render())
	}
	if res.Kind == templater.KindUnhandled {
		return ExitNotFound
	}
	return ExitOK
}

func cmdExpand(ws *workspace.Workspace, gf GlobalFlags, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--template": true,
		"--target":   true,
		"--line":     true,
	})
	fs := flag.NewFlagSet("expand", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	template := fs.String("template", "", "Template note name")
	target := fs.String("target", "", "Target note name")
	line := fs.Int("line", 0, "1-based insertion line (default: last line)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	tplName := strings.TrimSpace(*template)
	targetName := strings.TrimSpace(*target)
	if tplName == "" || targetName == "" {
		fmt.Fprintln(os.Stderr, "Usage: templater expand --template \"<name>\" --target \"<name>\" [--line N]")
		return ExitUsage
	}

	ctx := context.Background()
	tpl, err := ws.FindTemplate(ctx, tplName)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "expand: template not found:", tplName)
			return ExitNotFound
		}
		fmt.Fprintln(os.Stderr, "expand:", err)
		return ExitInternal
	}
	text, err := tpl.Content(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "expand:", err)
		return ExitInternal
	}
	targetNote, err := ws.FindNote(ctx, templater.NoteQuery{Name: targetName})
	if err != nil {
		fmt.Fprintln(os.Stderr, "expand:", err)
		return ExitInternal
	}
	if targetNote == nil {
		fmt.Fprintln(os.Stderr, "expand: target note not found:", targetName)
		return ExitNotFound
	}

	p, err := newPipeline(ws, gf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "expand:", err)
		return ExitInternal
	}
	report, err := p.Run(ctx, templater.RunInput{Template: text, Target: targetNote, Line: *line})
	if err != nil {
		fmt.Fprintln(os.Stderr, "expand:", err)
		return ExitInternal
	}

	if gf.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"template":      tplName,
			"target":        targetName,
			"footnotes":     len(report.Footnotes),
			"tasks_updated": report.TasksUpdated,
			"tasks_skipped": report.TasksSkipped,
			"unidentified":  report.Unidentified,
		})
		return ExitOK
	}
	if !gf.Quiet {
		fmt.Printf("Expanded %q into %q\n", tplName, targetName)
		if len(report.Footnotes) > 0 {
			fmt.Printf("  footnotes: %d\n", len(report.Footnotes))
		}
		if len(report.TasksUpdated) > 0 {
			fmt.Printf("  tasks updated: %s\n", strings.Join(report.TasksUpdated, ", "))
		}
		if len(report.TasksSkipped) > 0 {
			fmt.Printf("  tasks skipped: %s\n", strings.Join(report.TasksSkipped, ", "))
		}
		if report.Unidentified > 0 {
			fmt.Printf("  unidentified directives: %d\n", report.Unidentified)
		}
	}
	return ExitOK
}

func cmdJot(ws *workspace.Workspace, gf GlobalFlags, args []string) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: templater jot \"<text>\"")
		return ExitUsage
	}

	ctx := context.Background()
	ref := gf.refTime()
	daily, err := ws.DailyNote(ctx, ref)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jot:", err)
		return ExitInternal
	}
	p, err := newPipeline(ws, gf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jot:", err)
		return ExitInternal
	}
	report, err := p.Run(ctx, templater.RunInput{Template: text, Target: daily})
	if err != nil {
		fmt.Fprintln(os.Stderr, "jot:", err)
		return ExitInternal
	}

	name := templater.LongDate(ref.In(ws.Location()))
	if gf.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"note":          name,
			"url":           daily.URL(),
			"footnotes":     len(report.Footnotes),
			"tasks_updated": report.TasksUpdated,
			"tasks_skipped": report.TasksSkipped,
		})
		return ExitOK
	}
	if !gf.Quiet {
		fmt.Printf("Jotted to %q\n", name)
	}
	return ExitOK
}

func cmdNotes(ws *workspace.Workspace, gf GlobalFlags, args []string) int {
	infos, err := ws.ListNotes()
	if err != nil {
		fmt.Fprintln(os.Stderr, "notes:", err)
		return ExitInternal
	}
	return printNoteList(gf, infos)
}

func cmdTemplates(ws *workspace.Workspace, gf GlobalFlags, args []string) int {
	infos, err := ws.Templates()
	if err != nil {
		fmt.Fprintln(os.Stderr, "templates:", err)
		return ExitInternal
	}
	return printNoteList(gf, infos)
}

func printNoteList(gf GlobalFlags, infos []workspace.NoteInfo) int {
	if gf.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"notes": infos})
		return ExitOK
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTAGS\tID")
	for _, n := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", n.Name, strings.Join(n.Tags, ","), n.ID)
	}
	_ = w.Flush()
	return ExitOK
}
