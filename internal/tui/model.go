// Package tui provides the interactive file browser.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/dropzone"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/upload"
)

const requestTimeout = 10 * time.Second

// mode is what the keyboard currently drives.
type mode int

const (
	modeBrowse mode = iota
	modeDrop
	modeConfirmDelete
	modeDescribe
	modePath
)

// Model represents the state of the TUI application.
type Model struct {
	catalog *catalog.Catalog
	session *upload.Session
	surface *dropzone.Surface

	width  int
	height int

	mode          mode
	files         list.Model
	input         textinput.Model
	pendingDelete models.FileRecord

	help     help.Model
	keyMap   KeyMap
	showHelp bool

	statusMsg string
	busy      bool
}

// New creates a new TUI model. The session's uploads should be wired to
// cat.Prepend by the caller.
func New(cat *catalog.Catalog, session *upload.Session, surface *dropzone.Surface) Model {
	files := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	files.SetShowHelp(false)
	files.SetShowStatusBar(false)
	files.SetFilteringEnabled(false)
	files.Styles.NoItems = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 2)

	input := textinput.New()
	input.CharLimit = 1024

	m := Model{
		catalog:   cat,
		session:   session,
		surface:   surface,
		files:     files,
		input:     input,
		help:      help.New(),
		keyMap:    DefaultKeyMap(),
		statusMsg: "Loading files...",
	}
	m.files.Title = m.title()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.catalogCmd(func(ctx context.Context) error { return m.catalog.Mount(ctx) })
}

// Messages

type listLoadedMsg struct{ err error }

type deletedMsg struct {
	name string
	err  error
}

type sharedMsg struct {
	link string
	err  error
}

type openedMsg struct{ err error }

type uploadedMsg struct {
	rec *models.FileRecord
	err error
}

// Commands

func (m Model) catalogCmd(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return listLoadedMsg{err: fn(ctx)}
	}
}

func deleteCmd(cat *catalog.Catalog, rec models.FileRecord) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		// The user already answered the in-TUI prompt.
		err := cat.Delete(ctx, rec.ID.String(), func(models.FileRecord) bool { return true })
		return deletedMsg{name: rec.OriginalFilename, err: err}
	}
}

func shareCmd(cat *catalog.Catalog, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		link, err := cat.Share(ctx, id)
		return sharedMsg{link: link, err: err}
	}
}

func openCmd(cat *catalog.Catalog, id string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: cat.Download(id)}
	}
}

func submitCmd(session *upload.Session) tea.Cmd {
	return func() tea.Msg {
		rec, err := session.Submit(context.Background())
		return uploadedMsg{rec: rec, err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.files.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.FocusMsg:
		if m.mode == modeDrop {
			m.surface.DragEnter()
		}
		return m, nil

	case tea.BlurMsg:
		m.surface.DragLeave()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case listLoadedMsg:
		m.busy = false
		m.refresh()
		switch {
		case msg.err != nil:
			m.statusMsg = m.catalog.Err()
		case m.catalog.Empty():
			m.statusMsg = "No files"
		default:
			m.statusMsg = fmt.Sprintf("Loaded %d files", len(m.catalog.Files()))
		}
		return m, nil

	case deletedMsg:
		m.busy = false
		m.refresh()
		if msg.err != nil {
			m.statusMsg = m.catalog.Err()
		} else {
			m.statusMsg = "Deleted " + msg.name
		}
		return m, nil

	case sharedMsg:
		m.busy = false
		switch {
		case msg.link == "":
			m.statusMsg = m.catalog.Err()
		case msg.err != nil:
			m.statusMsg = "Share link: " + msg.link
		default:
			m.statusMsg = "Share link copied: " + msg.link
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = "Opened download in browser"
		}
		return m, nil

	case uploadedMsg:
		m.busy = false
		m.refresh()
		if msg.err != nil {
			m.statusMsg = m.session.Err()
			return m, nil
		}
		m.statusMsg = "Uploaded " + msg.rec.OriginalFilename
		m.mode = modeBrowse
		_ = m.session.Dismiss()
		m.files.Select(0)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeBrowse:
		m.files, cmd = m.files.Update(msg)
	case modeDescribe, modePath:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case modeDescribe, modePath:
		return m.handleInput(msg)
	case modeConfirmDelete:
		return m.handleConfirm(msg)
	case modeDrop:
		return m.handleDrop(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Scope):
		m.busy = true
		m.statusMsg = "Loading files..."
		return m, m.catalogCmd(func(ctx context.Context) error { return m.catalog.Toggle(ctx) })

	case key.Matches(msg, m.keyMap.Reload):
		m.busy = true
		m.statusMsg = "Loading files..."
		return m, m.catalogCmd(func(ctx context.Context) error { return m.catalog.Reload(ctx) })

	case key.Matches(msg, m.keyMap.Upload):
		m.mode = modeDrop
		m.statusMsg = "Drag a file into the terminal or press f to type a path"
		return m, nil

	case key.Matches(msg, m.keyMap.Delete):
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.catalog.Scope() != catalog.ScopeMine {
			m.statusMsg = "Switch to your files to delete"
			return m, nil
		}
		m.pendingDelete = rec
		m.mode = modeConfirmDelete
		return m, nil

	case key.Matches(msg, m.keyMap.Share):
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.busy = true
		m.statusMsg = "Creating share link..."
		return m, shareCmd(m.catalog, rec.ID.String())

	case key.Matches(msg, m.keyMap.Open):
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, openCmd(m.catalog, rec.ID.String())
	}

	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)
	return m, cmd
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rec := m.pendingDelete
	m.pendingDelete = models.FileRecord{}
	m.mode = modeBrowse
	if !key.Matches(msg, m.keyMap.Confirm) {
		m.statusMsg = catalog.ErrDeleteDeclined.Error()
		return m, nil
	}
	m.busy = true
	m.statusMsg = "Deleting " + rec.OriginalFilename + "..."
	return m, deleteCmd(m.catalog, rec)
}

func (m Model) handleDrop(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		if err := m.surface.Drop(string(msg.Runes)); err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		m.statusMsg = "Ready to upload"
		return m, nil
	}
	if m.session.Status() == models.StatusUploading {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.surface.DragLeave()
		_ = m.session.Dismiss()
		m.mode = modeBrowse
		m.statusMsg = ""
		return m, nil

	case key.Matches(msg, m.keyMap.Pick):
		m.mode = modePath
		m.input.Reset()
		m.input.Placeholder = "/path/to/file"
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keyMap.Describe):
		m.mode = modeDescribe
		m.input.SetValue(m.session.Pending().Description)
		m.input.Placeholder = "Description (optional)"
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keyMap.Public):
		_ = m.session.SetPublic(!m.session.Pending().IsPublic)
		return m, nil

	case key.Matches(msg, m.keyMap.Remove):
		_ = m.session.Remove()
		m.statusMsg = ""
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		if m.session.Pending().File == nil {
			m.statusMsg = upload.ErrNoFile.Error()
			return m, nil
		}
		m.busy = true
		m.statusMsg = "Uploading..."
		return m, submitCmd(m.session)
	}
	return m, nil
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.mode = modeDrop
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		m.input.Blur()
		current := m.mode
		m.mode = modeDrop
		if current == modeDescribe {
			_ = m.session.SetDescription(strings.TrimSpace(value))
			return m, nil
		}
		if err := m.surface.Pick(strings.TrimSpace(value)); err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		m.statusMsg = "Ready to upload"
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) selected() (models.FileRecord, bool) {
	item, ok := m.files.SelectedItem().(fileItem)
	if !ok {
		return models.FileRecord{}, false
	}
	return item.rec, true
}

// refresh copies the catalog into the list.
func (m *Model) refresh() {
	recs := m.catalog.Files()
	items := make([]list.Item, len(recs))
	for i, r := range recs {
		items[i] = fileItem{rec: r}
	}
	m.files.SetItems(items)
	m.files.Title = m.title()
}

func (m Model) title() string {
	if m.catalog.Scope() == catalog.ScopePublic {
		return "Public files"
	}
	return "My files"
}

// fileItem is a list.Item for one stored file.
type fileItem struct {
	rec models.FileRecord
}

func (f fileItem) FilterValue() string { return f.rec.OriginalFilename }

func (f fileItem) Title() string {
	if f.rec.IsPublic {
		return f.rec.OriginalFilename + "  [public]"
	}
	return f.rec.OriginalFilename
}

func (f fileItem) Description() string {
	size := f.rec.FileSizeDisplay
	if size == "" {
		size = models.SizeDisplay(f.rec.FileSizeBytes)
	}
	parts := []string{size, f.rec.FileType}
	if !f.rec.UploadDate.IsZero() {
		parts = append(parts, humanize.Time(f.rec.UploadDate))
	}
	if f.rec.Owner != nil {
		parts = append(parts, "by "+f.rec.Owner.Username)
	}
	if f.rec.Description != "" {
		parts = append(parts, f.rec.Description)
	}
	return strings.Join(parts, "  •  ")
}
