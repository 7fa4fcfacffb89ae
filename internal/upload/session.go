// Package upload holds the client-side upload session.
//
// Lifecycle: idle → selected → uploading → succeeded | failed.
// A failed session keeps its file so it can be submitted again; a
// succeeded one is reset and returns to idle on Dismiss.
//
// Session is safe for concurrent use.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maneesh/filedrop/internal/api"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/validate"
)

// FallbackMessage is shown when an upload fails without a server message.
const FallbackMessage = "upload failed"

var (
	// ErrUploadInFlight is returned by calls that would disturb a running upload.
	ErrUploadInFlight = errors.New("an upload is already in progress")
	// ErrNoFile is returned by Submit when nothing is staged.
	ErrNoFile = errors.New("no file selected")
)

// Uploader sends one upload request.
type Uploader interface {
	Upload(ctx context.Context, req api.UploadRequest) (*models.FileRecord, error)
}

// validTransitions maps each status to the statuses reachable from it.
var validTransitions = map[models.UploadStatus]map[models.UploadStatus]bool{
	models.StatusIdle:      {models.StatusSelected: true},
	models.StatusSelected:  {models.StatusSelected: true, models.StatusUploading: true, models.StatusIdle: true},
	models.StatusUploading: {models.StatusSucceeded: true, models.StatusFailed: true},
	models.StatusSucceeded: {models.StatusSelected: true, models.StatusIdle: true},
	models.StatusFailed:    {models.StatusSelected: true, models.StatusUploading: true, models.StatusIdle: true},
}

// TransitionError reports a move the lifecycle does not allow.
type TransitionError struct {
	From models.UploadStatus
	To   models.UploadStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("upload session cannot move from %s to %s", e.From, e.To)
}

// Session stages at most one file and submits it.
type Session struct {
	mu         sync.RWMutex
	uploader   Uploader
	pending    models.PendingUpload
	errMsg     string
	last       *models.FileRecord
	onUploaded func(models.FileRecord)
	logger     *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithOnUploaded registers fn to receive every record created by Submit.
func WithOnUploaded(fn func(models.FileRecord)) Option {
	return func(s *Session) { s.onUploaded = fn }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession returns an idle session submitting through uploader.
func NewSession(uploader Uploader, opts ...Option) *Session {
	s := &Session{
		uploader: uploader,
		pending:  models.PendingUpload{Status: models.StatusIdle},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "upload_session"))
	return s
}

// Pending returns a copy of the staged upload.
func (s *Session) Pending() models.PendingUpload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.pending
	if p.File != nil {
		f := *p.File
		p.File = &f
	}
	return p
}

// Status returns the current lifecycle status.
func (s *Session) Status() models.UploadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.Status
}

// Err returns the last message surfaced to the user, or "".
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Last returns the record created by the most recent successful Submit.
func (s *Session) Last() *models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// transition moves to target. Callers hold s.mu.
func (s *Session) transition(target models.UploadStatus) error {
	from := s.pending.Status
	if !validTransitions[from][target] {
		return &TransitionError{From: from, To: target}
	}
	s.pending.Status = target
	s.logger.Debug("status changed", slog.String("from", string(from)), slog.String("to", string(target)))
	return nil
}

// SelectFile validates f and stages it, replacing any staged file. A
// rejected file leaves the session as it was; the rejection is returned and
// kept as Err.
func (s *Session) SelectFile(f *models.LocalFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending.Status == models.StatusUploading {
		return ErrUploadInFlight
	}
	if err := validate.Check(f.Size, f.MIMEType); err != nil {
		s.errMsg = err.Error()
		return err
	}
	if err := s.transition(models.StatusSelected); err != nil {
		return err
	}
	s.pending.File = f
	s.errMsg = ""
	return nil
}

// SetDescription edits the staged description.
func (s *Session) SetDescription(desc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Status == models.StatusUploading {
		return ErrUploadInFlight
	}
	s.pending.Description = desc
	return nil
}

// SetPublic edits the staged visibility.
func (s *Session) SetPublic(public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Status == models.StatusUploading {
		return ErrUploadInFlight
	}
	s.pending.IsPublic = public
	return nil
}

// Remove drops the staged file and returns to idle.
func (s *Session) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Status == models.StatusIdle {
		return nil
	}
	if err := s.transition(models.StatusIdle); err != nil {
		if s.pending.Status == models.StatusUploading {
			return ErrUploadInFlight
		}
		return err
	}
	s.reset()
	return nil
}

// Dismiss acknowledges a finished upload and returns to idle.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.pending.Status {
	case models.StatusSucceeded, models.StatusFailed:
	default:
		return &TransitionError{From: s.pending.Status, To: models.StatusIdle}
	}
	if err := s.transition(models.StatusIdle); err != nil {
		return err
	}
	s.reset()
	return nil
}

// reset clears the staged fields. Callers hold s.mu.
func (s *Session) reset() {
	s.pending.File = nil
	s.pending.Description = ""
	s.pending.IsPublic = false
	s.errMsg = ""
}

// Submit sends the staged file as a single request. It never retries.
// On success the staged fields are reset and the record is handed to the
// OnUploaded callback; on failure the file stays staged.
func (s *Session) Submit(ctx context.Context) (*models.FileRecord, error) {
	s.mu.Lock()
	if s.pending.Status == models.StatusUploading {
		s.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	if s.pending.File == nil {
		s.mu.Unlock()
		return nil, ErrNoFile
	}
	if err := s.transition(models.StatusUploading); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	file := s.pending.File
	req := api.UploadRequest{
		Name:        file.Name,
		ContentType: file.MIMEType,
		Description: s.pending.Description,
		IsPublic:    s.pending.IsPublic,
	}
	s.errMsg = ""
	s.mu.Unlock()

	rec, err := s.send(ctx, file, req)

	s.mu.Lock()
	if err != nil {
		_ = s.transition(models.StatusFailed)
		s.errMsg = api.Message(err, FallbackMessage)
		s.mu.Unlock()
		s.logger.Warn("upload failed", slog.String("file", file.Name), slog.String("error", err.Error()))
		return nil, err
	}
	_ = s.transition(models.StatusSucceeded)
	s.reset()
	s.last = rec
	onUploaded := s.onUploaded
	s.mu.Unlock()

	s.logger.Info("upload finished", slog.String("file", file.Name), slog.String("id", rec.ID.String()))
	if onUploaded != nil {
		onUploaded(*rec)
	}
	return rec, nil
}

func (s *Session) send(ctx context.Context, file *models.LocalFile, req api.UploadRequest) (*models.FileRecord, error) {
	if file.Open == nil {
		return nil, fmt.Errorf("failed to open %s: no reader", file.Name)
	}
	body, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer body.Close()

	req.Body = body
	return s.uploader.Upload(ctx, req)
}
