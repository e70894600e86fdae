// Package workspace is the local markdown host for the templater library:
// a directory of notes with YAML frontmatter that implements both the
// NoteStore and TaskStore collaborator interfaces. Tasks are task lines
// inside note bodies; the workspace assigns their identifiers on every
// content write, which is what the pipeline's directive remapping relies
// on.
package workspace

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	timeNow     = func() time.Time { return time.Now().UTC() }
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

// Config is the workspace-level configuration persisted as config.json at
// the root. It carries host-side defaults only; the pipeline's knobs live
// in templater.Config.
type Config struct {
	Schema      int    `json:"schema"`
	TemplateTag string `json:"template_tag"`
	Timezone    string `json:"timezone,omitempty"`
}

func defaultConfig() Config {
	return Config{Schema: 1, TemplateTag: "templates"}
}

// Workspace is a note tree rooted at a directory. Notes live under
// notes/ as markdown files with YAML frontmatter.
type Workspace struct {
	Root string
	cfg  Config
}

// Open opens a workspace rooted at root. It does not create files until
// Init is called; a missing config falls back to defaults.
func Open(root string) (*Workspace, error) {
	ws := &Workspace{Root: expandHome(root)}
	if err := ws.loadConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ws, nil
}

// Init creates the workspace skeleton: the notes directory and a default
// config.json when none exists yet.
func (w *Workspace) Init() error {
	if err := os.MkdirAll(w.notesDir(), 0o755); err != nil {
		return err
	}
	cfgPath := filepath.Join(w.Root, "config.json")
	if _, err := os.Stat(cfgPath); err == nil {
		return w.loadConfig()
	}
	w.cfg = defaultConfig()
	b, _ := json.MarshalIndent(w.cfg, "", "  ")
	return atomicWriteFile(cfgPath, b, 0o644)
}

func (w *Workspace) loadConfig() error {
	b, err := os.ReadFile(filepath.Join(w.Root, "config.json"))
	if err != nil {
		w.cfg = defaultConfig()
		return err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return err
	}
	if cfg.Schema == 0 {
		cfg.Schema = 1
	}
	if strings.TrimSpace(cfg.TemplateTag) == "" {
		cfg.TemplateTag = defaultConfig().TemplateTag
	}
	w.cfg = cfg
	return nil
}

func (w *Workspace) Config() Config { return w.cfg }

// Location resolves the configured timezone, falling back to local time
// when unset or unparseable.
func (w *Workspace) Location() *time.Location {
	tz := strings.TrimSpace(w.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

func (w *Workspace) notesDir() string {
	return filepath.Join(w.Root, "notes")
}

func newTaskID() string {
	t := ulid.Timestamp(timeNow())
	id, err := ulid.New(t, ulid.Monotonic(randReader{}, 0))
	if err != nil {
		return fmt.Sprintf("tsk_%d", timeNow().UnixNano())
	}
	return "tsk_" + strings.ToUpper(id.String())
}

func slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "x"
	}
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "x"
	}
	return out
}

func dedupeTags(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func containsTag(tags []string, tag string) bool {
	tag = strings.TrimSpace(strings.ToLower(tag))
	for _, t := range tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", timeNow().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
