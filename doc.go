// Package templater expands bracket-delimited expressions embedded in
// markdown text: natural-language date and time phrases, arithmetic,
// note links, and task scheduling directives.
//
// The expansion pipeline substitutes expression values (generating
// footnotes outside link and task contexts), resolves [[...]] note links
// against a host note store, lifts {start:}/{hide:} directives off task
// lines into task-store updates, and re-indents the expanded text to
// match the list structure at its insertion point.
//
// The package is a pure text transform. Hosts supply the note and task
// stores (NoteStore, TaskStore) and the reference clock through Config;
// internal/workspace ships a local markdown implementation of both.
package templater
