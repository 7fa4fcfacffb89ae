package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/dropzone"
	"github.com/maneesh/filedrop/internal/tui"
	"github.com/maneesh/filedrop/internal/upload"
	"github.com/spf13/cobra"
)

func newBrowseCmd(a *app) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive file browser with drag and drop uploads",
		Long: `Launch an interactive terminal UI for your files.

- tab switches between your files and public files
- u opens the upload panel: drag a file onto the terminal window or press f
  to type its path, then enter to upload
- d deletes (after confirmation), s copies a share link, o opens a download
- ? toggles help, q quits`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := catalog.ScopeMine
			if public {
				scope = catalog.ScopePublic
			}
			cat := a.newCatalog(catalog.WithScope(scope))
			session := upload.NewSession(a.client,
				upload.WithOnUploaded(cat.Prepend),
				upload.WithLogger(a.logger),
			)
			model := tui.New(cat, session, dropzone.NewSurface(session))

			// Bracketed paste is on by default; dropped files arrive as pastes.
			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithReportFocus(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "start on public files")
	return cmd
}
