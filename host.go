package templater

import "context"

// Host collaborator interfaces. The library owns no storage: documents and
// tasks live behind these, and host glue supplies the implementations.

// NoteQuery selects a note by name, optionally narrowed by a tag.
type NoteQuery struct {
	Name string
	Tag  string
}

// Note is one document in the host store.
type Note interface {
	Content(ctx context.Context) (string, error)
	ReplaceContent(ctx context.Context, text string) error
	URL() string
}

// NoteStore finds and creates notes. FindNote returns (nil, nil) when
// nothing matches; errors are host I/O failures only.
type NoteStore interface {
	FindNote(ctx context.Context, q NoteQuery) (Note, error)
	CreateNote(ctx context.Context, name string, tags []string) (Note, error)
}

// Task is the scheduling-relevant slice of a host task record. StartAt and
// HideUntil are Unix seconds; zero means unset.
type Task struct {
	ID        string
	Content   string
	StartAt   int64
	HideUntil int64
}

// TaskPatch updates a task record; nil fields are left untouched.
type TaskPatch struct {
	Content   *string
	StartAt   *int64
	HideUntil *int64
}

// TaskStore reads and updates task records. Hosts index tasks lazily, so
// GetTask returns (nil, nil) until a freshly created task becomes visible.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) error
}
