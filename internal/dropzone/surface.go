// Package dropzone turns drag-and-drop and manual picks into staged uploads.
package dropzone

import (
	"errors"
	"sync"

	"github.com/maneesh/filedrop/internal/models"
)

// ErrEmptyDrop is returned when a drop carries no path.
var ErrEmptyDrop = errors.New("nothing was dropped")

// Selector receives files chosen on the surface. upload.Session satisfies it.
type Selector interface {
	SelectFile(f *models.LocalFile) error
}

// Surface tracks drag feedback and forwards dropped files to a Selector.
type Surface struct {
	mu     sync.Mutex
	sel    Selector
	active bool
	errMsg string
	load   func(path string) (*models.LocalFile, error)
}

// NewSurface returns an inactive surface feeding sel.
func NewSurface(sel Selector) *Surface {
	return &Surface{sel: sel, load: LoadLocalFile}
}

// DragEnter marks the surface active.
func (s *Surface) DragEnter() { s.setActive(true) }

// DragOver keeps the surface active.
func (s *Surface) DragOver() { s.setActive(true) }

// DragLeave clears the active state.
func (s *Surface) DragLeave() { s.setActive(false) }

func (s *Surface) setActive(v bool) {
	s.mu.Lock()
	s.active = v
	s.mu.Unlock()
}

// Active reports whether a drag is over the surface.
func (s *Surface) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Err returns the last load failure, or "". Validation failures are kept
// by the Selector.
func (s *Surface) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Drop ends the drag and selects the first path in payload.
func (s *Surface) Drop(payload string) error {
	s.setActive(false)

	paths := ParsePayload(payload)
	if len(paths) == 0 {
		return s.fail(ErrEmptyDrop)
	}
	return s.Pick(paths[0])
}

// Pick loads path and selects it, as the manual file picker does.
func (s *Surface) Pick(path string) error {
	f, err := s.load(path)
	if err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	return s.sel.SelectFile(f)
}

func (s *Surface) fail(err error) error {
	s.mu.Lock()
	s.errMsg = err.Error()
	s.mu.Unlock()
	return err
}
