package workspace

import (
	"context"
	"time"

	templater "github.com/lapluviosilla/amplenote-templater"
)

// DailyTag marks the one-note-per-day journal notes.
const DailyTag = "daily-jots"

// DailyNote finds or creates the journal note for ref's calendar day. The
// note is named in long-date form ("June 12th, 2024") so that expression
// links resolving to dates land on it. Link resolution creates such notes
// untagged, so the lookup falls back to a name-only match before creating.
func (w *Workspace) DailyNote(ctx context.Context, ref time.Time) (templater.Note, error) {
	name := templater.LongDate(ref.In(w.Location()))
	n, err := w.FindNote(ctx, templater.NoteQuery{Name: name, Tag: DailyTag})
	if err != nil {
		return nil, err
	}
	if n == nil {
		n, err = w.FindNote(ctx, templater.NoteQuery{Name: name})
		if err != nil {
			return nil, err
		}
	}
	if n != nil {
		return n, nil
	}
	return w.CreateNote(ctx, name, []string{DailyTag})
}
