package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/validate"
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("12")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = panelStyle.
				BorderForeground(lipgloss.Color("10"))

	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true).
			Padding(0, 1)
)

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabBar())
	b.WriteString("\n\n")

	switch m.mode {
	case modeDrop, modeDescribe, modePath:
		b.WriteString(m.renderDropPanel())
	default:
		b.WriteString(m.renderFiles())
	}
	b.WriteString("\n")

	if m.mode == modeConfirmDelete {
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Delete %s? This cannot be undone. [y/N]", m.pendingDelete.OriginalFilename)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	if m.mode == modeDrop {
		b.WriteString(m.help.View(dropKeys{m.keyMap}))
	} else if m.showHelp {
		b.WriteString(m.help.FullHelpView(m.keyMap.FullHelp()))
	} else {
		b.WriteString(m.help.View(m.keyMap))
	}
	return b.String()
}

func (m Model) renderTabBar() string {
	tabs := []struct {
		label string
		scope catalog.Scope
	}{
		{"My files", catalog.ScopeMine},
		{"Public files", catalog.ScopePublic},
	}

	rendered := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if m.catalog.Scope() == t.scope {
			rendered = append(rendered, activeTabStyle.Render(t.label))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(t.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderFiles() string {
	if m.catalog.Empty() {
		if m.catalog.Scope() == catalog.ScopePublic {
			return emptyStyle.Render("No public files yet.")
		}
		return emptyStyle.Render("No files yet. Press u to upload one.")
	}
	return m.files.View()
}

func (m Model) renderDropPanel() string {
	p := m.session.Pending()

	var b strings.Builder
	switch {
	case p.Status == models.StatusUploading:
		b.WriteString("Uploading " + p.File.Name + "...")
	case p.File != nil:
		fmt.Fprintf(&b, "%s  (%s, %s)", p.File.Name, models.SizeDisplay(p.File.Size), p.File.MIMEType)
	case m.surface.Active():
		b.WriteString("Drop the file here")
	default:
		b.WriteString("Drag a file into this window, or press f to type its path.\n")
		fmt.Fprintf(&b, "Up to %s. Images, PDF, text, CSV, Office documents, ZIP and RAR.", models.SizeDisplay(validate.MaxFileSize))
	}
	b.WriteString("\n\n")

	visibility := "private"
	if p.IsPublic {
		visibility = "public"
	}
	desc := p.Description
	if desc == "" {
		desc = "(none)"
	}
	fmt.Fprintf(&b, "Description: %s\nVisibility:  %s", desc, visibility)

	if m.mode == modeDescribe || m.mode == modePath {
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
	}

	style := panelStyle
	if m.surface.Active() {
		style = activePanelStyle
	}
	if m.width > 8 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

func (m Model) renderStatusBar() string {
	if msg := m.currentError(); msg != "" && msg == m.statusMsg {
		return errorStyle.Render(msg)
	}
	status := m.statusMsg
	if m.busy {
		status += " ..."
	}
	return statusStyle.Render(status)
}

// currentError is the message any component is surfacing.
func (m Model) currentError() string {
	for _, msg := range []string{m.surface.Err(), m.session.Err(), m.catalog.Err()} {
		if msg != "" {
			return msg
		}
	}
	return ""
}
