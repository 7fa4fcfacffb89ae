// Package catalog keeps the client's view of stored files for one scope.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/maneesh/filedrop/internal/api"
	"github.com/maneesh/filedrop/internal/models"
)

// Scope selects which listing the catalog shows.
type Scope string

const (
	ScopeMine   Scope = "mine"
	ScopePublic Scope = "public"
)

// Messages surfaced when the backend gives no reason.
const (
	MsgLoadMine   = "failed to load files"
	MsgLoadPublic = "failed to load public files"
	MsgDelete     = "delete failed"
	MsgShare      = "failed to create share link"
)

var (
	// ErrDeleteDeclined is returned when the confirm callback refuses a delete.
	ErrDeleteDeclined = errors.New("delete cancelled")
	// ErrUnknownFile is returned for ids not in the current set.
	ErrUnknownFile = errors.New("file is not in the current list")
)

// Backend is the part of the file API the catalog uses.
type Backend interface {
	ListFiles(ctx context.Context) ([]models.FileRecord, error)
	ListPublicFiles(ctx context.Context) ([]models.FileRecord, error)
	DeleteFile(ctx context.Context, id string) error
	ShareFile(ctx context.Context, id string, opts api.ShareOptions) (*models.ShareRecord, error)
	ResolveURL(ref string) string
}

// Clipboard receives share links.
type Clipboard interface {
	WriteAll(text string) error
}

// Opener hands download links to the user's browser.
type Opener interface {
	OpenURL(url string) error
}

// ConfirmFunc is asked before a delete is sent.
type ConfirmFunc func(models.FileRecord) bool

// Catalog owns the rendered file set. Safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	backend Backend
	clip    Clipboard
	opener  Opener
	logger  *slog.Logger

	scope      Scope
	files      []models.FileRecord
	loaded     bool
	loading    bool
	errMsg     string
	generation uint64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClipboard sets where share links are copied.
func WithClipboard(c Clipboard) Option {
	return func(cat *Catalog) { cat.clip = c }
}

// WithOpener sets how download links are opened.
func WithOpener(o Opener) Option {
	return func(cat *Catalog) { cat.opener = o }
}

// WithScope sets the initial scope. The default is ScopeMine.
func WithScope(s Scope) Option {
	return func(cat *Catalog) { cat.scope = s }
}

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cat *Catalog) { cat.logger = logger }
}

// New returns an unloaded catalog. Call Mount to fetch the first listing.
func New(backend Backend, opts ...Option) *Catalog {
	c := &Catalog{
		backend: backend,
		scope:   ScopeMine,
		files:   []models.FileRecord{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "catalog"))
	return c
}

// Mount issues the first listing for the current scope.
func (c *Catalog) Mount(ctx context.Context) error {
	return c.load(ctx)
}

// Reload refetches the current scope.
func (c *Catalog) Reload(ctx context.Context) error {
	return c.load(ctx)
}

// SetScope switches scope and refetches. The response replaces the set.
func (c *Catalog) SetScope(ctx context.Context, scope Scope) error {
	if scope != ScopeMine && scope != ScopePublic {
		return fmt.Errorf("unknown scope %q", scope)
	}
	c.mu.Lock()
	c.scope = scope
	c.mu.Unlock()
	return c.load(ctx)
}

// Toggle flips between mine and public.
func (c *Catalog) Toggle(ctx context.Context) error {
	next := ScopePublic
	if c.Scope() == ScopePublic {
		next = ScopeMine
	}
	return c.SetScope(ctx, next)
}

// load fetches the current scope. Only the response to the most recent
// request is applied; older ones are dropped.
func (c *Catalog) load(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	scope := c.scope
	c.loading = true
	c.mu.Unlock()

	var (
		files    []models.FileRecord
		err      error
		fallback = MsgLoadMine
	)
	if scope == ScopePublic {
		files, err = c.backend.ListPublicFiles(ctx)
		fallback = MsgLoadPublic
	} else {
		files, err = c.backend.ListFiles(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.logger.Debug("discarding stale listing", slog.String("scope", string(scope)))
		return nil
	}
	c.loading = false
	if err != nil {
		c.errMsg = api.Message(err, fallback)
		c.logger.Warn("listing failed", slog.String("scope", string(scope)), slog.String("error", err.Error()))
		return err
	}
	// The backend's slice is never spliced in place.
	c.files = slices.Clone(files)
	if c.files == nil {
		c.files = []models.FileRecord{}
	}
	c.loaded = true
	c.errMsg = ""
	return nil
}

// Scope returns the current scope.
func (c *Catalog) Scope() Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

// Files returns a copy of the rendered set, newest first.
func (c *Catalog) Files() []models.FileRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.FileRecord, len(c.files))
	copy(out, c.files)
	return out
}

// Lookup returns the record with id from the rendered set.
func (c *Catalog) Lookup(id string) (models.FileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return models.FileRecord{}, false
	}
	return c.files[i], true
}

// Loading reports whether a listing request is outstanding.
func (c *Catalog) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Empty reports a loaded scope with no files.
func (c *Catalog) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded && len(c.files) == 0
}

// Err returns the last message surfaced to the user, or "".
func (c *Catalog) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}

// ClearErr dismisses the surfaced message.
func (c *Catalog) ClearErr() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

// Prepend inserts a freshly uploaded record at the head, replacing any
// entry with the same id. Private records are not shown in the public scope.
func (c *Catalog) Prepend(rec models.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope == ScopePublic && !rec.IsPublic {
		return
	}
	if i := c.indexOf(rec.ID.String()); i >= 0 {
		c.files = slices.Delete(c.files, i, i+1)
	}
	c.files = append([]models.FileRecord{rec}, c.files...)
	c.loaded = true
}

// Delete asks confirm, then deletes id. The record is removed only after
// the backend accepts the delete.
func (c *Catalog) Delete(ctx context.Context, id string, confirm ConfirmFunc) error {
	rec, ok := c.Lookup(id)
	if !ok {
		return ErrUnknownFile
	}
	if confirm == nil || !confirm(rec) {
		return ErrDeleteDeclined
	}

	if err := c.backend.DeleteFile(ctx, id); err != nil {
		c.mu.Lock()
		c.errMsg = api.Message(err, MsgDelete)
		c.mu.Unlock()
		c.logger.Warn("delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.files = slices.Delete(c.files, i, i+1)
	}
	c.errMsg = ""
	c.mu.Unlock()
	c.logger.Info("file deleted", slog.String("id", id))
	return nil
}

// Share mints a link for id and copies it to the clipboard. The link is
// returned even when copying fails.
func (c *Catalog) Share(ctx context.Context, id string) (string, error) {
	share, err := c.backend.ShareFile(ctx, id, api.ShareOptions{})
	if err != nil {
		c.mu.Lock()
		c.errMsg = api.Message(err, MsgShare)
		c.mu.Unlock()
		c.logger.Warn("share failed", slog.String("id", id), slog.String("error", err.Error()))
		return "", err
	}

	link := c.backend.ResolveURL(share.ShareURL)
	if c.clip != nil {
		if err := c.clip.WriteAll(link); err != nil {
			return link, fmt.Errorf("failed to copy share link: %w", err)
		}
	}
	c.ClearErr()
	return link, nil
}

// Download opens the record's download link in the browser.
func (c *Catalog) Download(id string) error {
	rec, ok := c.Lookup(id)
	if !ok {
		return ErrUnknownFile
	}
	if c.opener == nil {
		return errors.New("no browser available")
	}
	link := c.backend.ResolveURL(rec.DownloadURL)
	if err := c.opener.OpenURL(link); err != nil {
		return fmt.Errorf("failed to open %s: %w", link, err)
	}
	return nil
}

// indexOf finds id in the set. Callers hold c.mu.
func (c *Catalog) indexOf(id string) int {
	for i := range c.files {
		if c.files[i].ID.String() == id {
			return i
		}
	}
	return -1
}
