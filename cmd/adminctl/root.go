package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/tenant-admin/internal/admin/credstore"
	"finitefield.org/tenant-admin/internal/admin/login"
	"finitefield.org/tenant-admin/internal/admin/observability"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	apiURL      string
	baseURL     string
	basePath    string
	sessionFile string
	logLevel    string
}

// NewRootCmd creates the root command for adminctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "adminctl",
		Short: "Tenant admin console from the terminal",
		Long: `adminctl signs staff in to the tenant admin console, keeps the issued
session token on disk and opens the console in the browser.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("ADMINCTL_API_URL", "http://localhost:8000"), "Authentication Service base URL")
	flags.StringVar(&opts.baseURL, "base-url", envOr("ADMINCTL_BASE_URL", "http://localhost:8080"), "admin console origin opened after sign-in")
	flags.StringVar(&opts.basePath, "base-path", "/admin", "admin console base path")
	flags.StringVar(&opts.sessionFile, "session-file", "", "session file (default: user config dir)")
	flags.StringVar(&opts.logLevel, "log-level", "error", "log level written to stderr")

	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))

	return cmd
}

func (o *rootOptions) store() (*credstore.Store, error) {
	path := o.sessionFile
	if path == "" {
		var err error
		if path, err = credstore.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return credstore.New(path, o.apiURL), nil
}

func (o *rootOptions) logger() *zap.Logger {
	logger, err := observability.NewLogger(o.logLevel)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *rootOptions) loginPath() string {
	base := login.NormalizeBase(o.basePath)
	if base == "/" {
		return "/login"
	}
	return base + "/login"
}

// consoleURL joins the console origin and a same-origin target path.
func (o *rootOptions) consoleURL(target string) string {
	return strings.TrimRight(o.baseURL, "/") + target
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
