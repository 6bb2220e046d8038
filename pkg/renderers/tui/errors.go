package tui

import "errors"

// ErrAborted reports that the user interrupted the prompt flow (Ctrl+C).
var ErrAborted = errors.New("tui: aborted by user")
