package orchestrator

import (
	"fmt"
	"io"
)

// StatusFunc receives human-readable progress text. Implementations
// own delivery (terminal, chat message edit, log); the engine only
// pushes staged narration through it.
type StatusFunc func(text string)

// NopStatus discards all progress text.
func NopStatus(string) {}

// WriterStatus streams progress lines to w, one push per line block.
func WriterStatus(w io.Writer) StatusFunc {
	return func(text string) {
		fmt.Fprintln(w, text)
	}
}
