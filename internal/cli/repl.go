package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	templater "github.com/lapluviosilla/amplenote-templater"
	"github.com/lapluviosilla/amplenote-templater/internal/workspace"
)

const historyFile = ".templater_history"

func cmdRepl(ws *workspace.Workspace, gf GlobalFlags, args []string) int {
	histPath := filepath.Join(ws.Root, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ref := gf.refTime()
	if !gf.Quiet {
		fmt.Printf("templater repl (reference %s)\n", ref.Format(time.RFC3339))
		fmt.Println("Type an expression (braces optional), :ref <rfc3339>, or :quit.")
	}

	for {
		input, err := ln.Prompt("templater> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return ExitOK
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "repl:", err)
			return ExitInternal
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		ln.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			switch {
			case input == ":quit" || input == ":q" || input == ":exit":
				return ExitOK
			case input == ":ref":
				fmt.Println(ref.Format(time.RFC3339))
			case strings.HasPrefix(input, ":ref "):
				t, perr := time.Parse(time.RFC3339, strings.TrimSpace(strings.TrimPrefix(input, ":ref ")))
				if perr != nil {
					fmt.Println("want RFC3339, e.g. 2024-06-12T10:30:00Z")
					continue
				}
				ref = t
				fmt.Println("reference set to", ref.Format(time.RFC3339))
			case input == ":help":
				fmt.Println(`expressions: {tomorrow at 3pm}  {next friday}  {"YYYY-MM-DD":today}  {2*(3+4)}`)
				fmt.Println("commands: :ref [<rfc3339>], :quit")
			default:
				fmt.Println("unknown command (try :help)")
			}
			continue
		}

		res := evalExpression(input, ref)
		if res.Kind == templater.KindUnhandled {
			fmt.Println("unhandled")
			continue
		}
		fmt.Printf("%s\t%s\n", res.Kind, res.Render())
	}
}
