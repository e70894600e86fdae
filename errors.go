package templater

import "errors"

var (
	// ErrInvalid reports unusable library input, such as a nil store.
	ErrInvalid = errors.New("invalid")
	// ErrTaskNotVisible reports a task that never appeared in the host
	// store before the retry deadline. It is recorded per directive in the
	// run report, never returned from a pipeline run.
	ErrTaskNotVisible = errors.New("task not visible before deadline")
)
