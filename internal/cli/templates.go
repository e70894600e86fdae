package cli

import (
	"context"
	_ "embed"

	templater "github.com/lapluviosilla/amplenote-templater"
	"github.com/lapluviosilla/amplenote-templater/internal/workspace"
)

var (
	//go:embed templates/daily-plan.md
	sampleDailyPlan string
	//go:embed templates/meeting-notes.md
	sampleMeetingNotes string
	//go:embed templates/weekly-review.md
	sampleWeeklyReview string
)

// sampleTemplates are seeded by init so a fresh workspace has something to
// expand.
var sampleTemplates = []struct {
	name string
	body string
}{
	{"Daily Plan", sampleDailyPlan},
	{"Meeting Notes", sampleMeetingNotes},
	{"Weekly Review", sampleWeeklyReview},
}

// seedSampleTemplates creates the sample template notes that do not exist
// yet, returning how many were created.
func seedSampleTemplates(ctx context.Context, ws *workspace.Workspace) (int, error) {
	tag := ws.Config().TemplateTag
	created := 0
	for _, tpl := range sampleTemplates {
		existing, err := ws.FindNote(ctx, templater.NoteQuery{Name: tpl.name, Tag: tag})
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		n, err := ws.CreateNote(ctx, tpl.name, []string{tag})
		if err != nil {
			return created, err
		}
		if err := n.ReplaceContent(ctx, tpl.body); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
