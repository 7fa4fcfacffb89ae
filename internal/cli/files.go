package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/dropzone"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/upload"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		description string
		public      bool
	)

	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Upload a file",
		Long: `Upload a single file. Images, PDF, text, CSV, Office documents, ZIP and
RAR archives up to 100MB are accepted. Files are private unless --public is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := upload.NewSession(a.client, upload.WithLogger(a.logger))
			if err := dropzone.NewSurface(session).Pick(args[0]); err != nil {
				return err
			}
			if err := session.SetDescription(strings.TrimSpace(description)); err != nil {
				return err
			}
			if err := session.SetPublic(public); err != nil {
				return err
			}

			rec, err := session.Submit(cmd.Context())
			if err != nil {
				return errors.New(session.Err())
			}
			return a.printFiles(cmd.OutOrStdout(), []models.FileRecord{*rec}, false)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "optional description")
	cmd.Flags().BoolVar(&public, "public", false, "make the file visible to everyone")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your files, or everyone's public files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := catalog.ScopeMine
			if public {
				scope = catalog.ScopePublic
			}
			cat := a.newCatalog(catalog.WithScope(scope))
			if err := cat.Mount(cmd.Context()); err != nil {
				return errors.New(cat.Err())
			}
			return a.printFiles(cmd.OutOrStdout(), cat.Files(), public)
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "list public files from every user")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete one of your files",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := a.newCatalog()
			if err := cat.Mount(cmd.Context()); err != nil {
				return errors.New(cat.Err())
			}

			confirm := func(rec models.FileRecord) bool {
				return yes || prompt(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Delete %s? This cannot be undone. [y/N] ", rec.OriginalFilename))
			}
			err := cat.Delete(cmd.Context(), args[0], confirm)
			switch {
			case errors.Is(err, catalog.ErrUnknownFile):
				return fmt.Errorf("file not found: %s", args[0])
			case errors.Is(err, catalog.ErrDeleteDeclined):
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			case err != nil:
				return errors.New(cat.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newShareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share ID",
		Short: "Create a share link and copy it to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := a.newCatalog()
			link, err := cat.Share(cmd.Context(), args[0])
			if link == "" {
				return errors.New(cat.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			if err != nil {
				a.logger.Warn("share link not copied", "error", err)
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
			return nil
		},
	}
}

func newOpenCmd(a *app) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "open ID",
		Short: "Download a file in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := catalog.ScopeMine
			if public {
				scope = catalog.ScopePublic
			}
			cat := a.newCatalog(catalog.WithScope(scope))
			if err := cat.Mount(cmd.Context()); err != nil {
				return errors.New(cat.Err())
			}
			if err := cat.Download(args[0]); err != nil {
				if errors.Is(err, catalog.ErrUnknownFile) {
					return fmt.Errorf("file not found: %s", args[0])
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "look the file up among public files")
	return cmd
}

// printFiles renders recs in the configured output format.
func (a *app) printFiles(w io.Writer, recs []models.FileRecord, withOwner bool) error {
	if a.cfg.Output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, "No files.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	header := []any{"ID", "Name", "Size", "Type", "Uploaded", "Visibility"}
	if withOwner {
		header = append(header, "Owner")
	}
	table.Header(header...)

	for _, rec := range recs {
		visibility := "private"
		if rec.IsPublic {
			visibility = "public"
		}
		uploaded := ""
		if !rec.UploadDate.IsZero() {
			uploaded = humanize.Time(rec.UploadDate)
		}
		size := rec.FileSizeDisplay
		if size == "" {
			size = models.SizeDisplay(rec.FileSizeBytes)
		}
		row := []any{rec.ID.String(), rec.OriginalFilename, size, rec.FileType, uploaded, visibility}
		if withOwner {
			owner := ""
			if rec.Owner != nil {
				owner = rec.Owner.Username
			}
			row = append(row, owner)
		}
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}

// prompt asks a yes/no question and reports whether the answer was yes.
func prompt(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
