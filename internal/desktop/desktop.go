// Package desktop adapts the system clipboard and browser for the catalog.
package desktop

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
)

// Clipboard writes to the system clipboard.
type Clipboard struct{}

// WriteAll copies text to the clipboard.
func (Clipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not available on this system")
	}
	return clipboard.WriteAll(text)
}

// Browser opens URLs in the user's default browser.
type Browser struct {
	// Stdout and Stderr receive the launcher's output; nil discards it so a
	// running TUI is not disturbed.
	Stdout io.Writer
	Stderr io.Writer
}

// OpenURL launches the browser on url.
func (b Browser) OpenURL(url string) error {
	if url == "" {
		return fmt.Errorf("cannot open browser: empty URL provided")
	}

	browser.Stdout = writerOrDiscard(b.Stdout)
	browser.Stderr = writerOrDiscard(b.Stderr)
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("failed to open browser automatically, please open this URL manually:\n%s\nError: %w", url, err)
	}
	return nil
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
