package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	templater "github.com/lapluviosilla/amplenote-templater"
)

// NoteMeta is the YAML frontmatter of a note file.
type NoteMeta struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Tags      []string   `yaml:"tags"`
	CreatedAt *time.Time `yaml:"created_at"`
	UpdatedAt *time.Time `yaml:"updated_at"`
}

// NoteInfo is a listing entry: frontmatter plus the backing file path.
type NoteInfo struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
	Path string   `json:"path"`
}

// note is one markdown file under notes/. It satisfies templater.Note.
type note struct {
	path string
	meta NoteMeta
}

func (n *note) URL() string { return "local://notes/" + n.meta.ID }

func (n *note) Content(ctx context.Context) (string, error) {
	_, body, err := readNoteFile(n.path)
	if err != nil {
		return "", err
	}
	return body, nil
}

// ReplaceContent writes a new body, stamping task identifiers onto task
// lines that lack a metadata comment. That stamp is the host-side ID
// assignment the pipeline's directive remapping picks up on reread.
func (n *note) ReplaceContent(ctx context.Context, text string) error {
	now := timeNow()
	n.meta.UpdatedAt = &now
	return writeNoteFile(n.path, n.meta, assignTaskIDs(text))
}

// FindNote returns the first note whose name matches the query
// (case-insensitive), narrowed by tag when the query carries one. A miss
// is (nil, nil), not an error.
func (w *Workspace) FindNote(ctx context.Context, q templater.NoteQuery) (templater.Note, error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: note name is required", ErrInvalid)
	}
	infos, err := w.ListNotes()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if !strings.EqualFold(info.Name, name) {
			continue
		}
		if q.Tag != "" && !containsTag(info.Tags, q.Tag) {
			continue
		}
		return w.openNote(info.Path)
	}
	return nil, nil
}

// CreateNote writes a new note file with a fresh UUID. The filename is
// the slugified name; collisions get a numeric suffix.
func (w *Workspace) CreateNote(ctx context.Context, name string, tags []string) (templater.Note, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: note name is required", ErrInvalid)
	}
	now := timeNow()
	meta := NoteMeta{
		ID:        uuid.New().String(),
		Name:      name,
		Tags:      dedupeTags(tags),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	path, err := w.claimNotePath(slugify(name))
	if err != nil {
		return nil, err
	}
	if err := writeNoteFile(path, meta, ""); err != nil {
		return nil, err
	}
	return &note{path: path, meta: meta}, nil
}

// claimNotePath finds an unused file path for a slug.
func (w *Workspace) claimNotePath(slug string) (string, error) {
	base := filepath.Join(w.notesDir(), slug)
	path := base + ".md"
	for i := 2; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", err
		}
		path = fmt.Sprintf("%s-%d.md", base, i)
	}
}

func (w *Workspace) openNote(path string) (*note, error) {
	meta, _, err := readNoteFile(path)
	if err != nil {
		return nil, err
	}
	return &note{path: path, meta: *meta}, nil
}

// ListNotes returns every readable note's frontmatter, sorted by name.
func (w *Workspace) ListNotes() ([]NoteInfo, error) {
	var out []NoteInfo
	err := filepath.WalkDir(w.notesDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		meta, _, err := readNoteFile(path)
		if err != nil {
			// ignore broken note files
			return nil
		}
		out = append(out, NoteInfo{ID: meta.ID, Name: meta.Name, Tags: meta.Tags, Path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].Name, out[j].Name) {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Templates lists the notes carrying the configured template tag.
func (w *Workspace) Templates() ([]NoteInfo, error) {
	infos, err := w.ListNotes()
	if err != nil {
		return nil, err
	}
	var out []NoteInfo
	for _, info := range infos {
		if containsTag(info.Tags, w.cfg.TemplateTag) {
			out = append(out, info)
		}
	}
	return out, nil
}

// FindTemplate resolves a template note by name under the template tag.
func (w *Workspace) FindTemplate(ctx context.Context, name string) (templater.Note, error) {
	n, err := w.FindNote(ctx, templater.NoteQuery{Name: name, Tag: w.cfg.TemplateTag})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: template %q", ErrNotFound, name)
	}
	return n, nil
}

func writeNoteFile(path string, meta NoteMeta, body string) error {
	yamlBytes, err := yaml.Marshal(&meta)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(yamlBytes)
	buf.WriteString("---\n\n")
	if strings.TrimSpace(body) != "" {
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return atomicWriteFile(path, buf.Bytes(), 0o644)
}

func readNoteFile(path string) (*NoteMeta, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return nil, "", fmt.Errorf("%w: missing frontmatter", ErrInvalid)
	}
	parts := strings.SplitN(s, "\n---\n", 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("%w: invalid frontmatter delimiters", ErrInvalid)
	}
	var meta NoteMeta
	if err := yaml.Unmarshal([]byte(strings.TrimPrefix(parts[0], "---\n")), &meta); err != nil {
		return nil, "", err
	}
	body := strings.TrimPrefix(parts[1], "\n")
	return &meta, body, nil
}
