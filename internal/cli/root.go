// Package cli wires the file API client components into cobra commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/maneesh/filedrop/internal/api"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/config"
	"github.com/maneesh/filedrop/internal/desktop"
	"github.com/spf13/cobra"
)

// app holds what every command needs once flags and config are resolved.
type app struct {
	cfg    *config.ClientConfig
	client *api.Client
	logger *slog.Logger

	clip   catalog.Clipboard
	opener catalog.Opener
}

// Option overrides a desktop integration, for tests.
type Option func(*app)

// WithClipboard replaces the system clipboard.
func WithClipboard(c catalog.Clipboard) Option {
	return func(a *app) { a.clip = c }
}

// WithOpener replaces the system browser.
func WithOpener(o catalog.Opener) Option {
	return func(a *app) { a.opener = o }
}

// NewRootCommand builds the filedrop command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		clip:   desktop.Clipboard{},
		opener: desktop.Browser{},
	}
	for _, opt := range opts {
		opt(a)
	}

	var cfgFile string

	root := &cobra.Command{
		Use:   "filedrop",
		Short: "Upload, list and share files from the terminal",
		Long: `Command-line client for the filedrop file API.

Upload files, list your own or everyone's public files, delete, share and
download them. Run "filedrop browse" for the interactive view with drag and
drop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to read .env: %w", err)
			}

			v, err := config.NewClientViper(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			flags := cmd.Root().PersistentFlags()
			for key, name := range map[string]string{
				"server_url": "server",
				"output":     "output",
				"debug":      "debug",
				"user_id":    "user",
			} {
				if f := flags.Lookup(name); f != nil {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}

			cfg, err := config.LoadClient(v)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.ServerURL == "" {
				return fmt.Errorf("no server URL configured. Set FILEDROP_SERVER_URL or pass --server")
			}

			level := "warn"
			if cfg.Debug {
				level = "debug"
			}
			a.cfg = cfg
			a.logger = config.SetupLogger(level, "text")
			a.client = api.New(cfg)
			a.logger.Debug("client configured", slog.String("server", cfg.ServerURL))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.filedrop/config.yaml)")
	pf.String("server", "", "filedrop server URL")
	pf.String("user", "", "user id sent with requests")
	pf.StringP("output", "o", "table", "output format (table, json)")
	pf.Bool("debug", false, "enable debug logging")

	root.AddCommand(
		newUploadCmd(a),
		newListCmd(a),
		newRemoveCmd(a),
		newShareCmd(a),
		newOpenCmd(a),
		newBrowseCmd(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) newCatalog(opts ...catalog.Option) *catalog.Catalog {
	opts = append([]catalog.Option{
		catalog.WithClipboard(a.clip),
		catalog.WithOpener(a.opener),
		catalog.WithLogger(a.logger),
	}, opts...)
	return catalog.New(a.client, opts...)
}
