package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cli/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/tenant-admin/internal/admin/login"
	"finitefield.org/tenant-admin/internal/admin/tui"
)

var errLoginAborted = errors.New("login aborted")

type loginOptions struct {
	next      string
	email     string
	remember  bool
	noBrowser bool
	delay     time.Duration
}

// openURL opens the console once the flow navigates.
var openURL = browser.OpenURL

func newLoginCmd(root *rootOptions) *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in interactively",
		Long: `Open an interactive login form. On success the session token is saved
to the session file and the console opens at the page named by --next.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.next, "next", "", "console path to open after sign-in")
	cmd.Flags().StringVar(&opts.email, "email", "", "pre-fill the email field")
	cmd.Flags().BoolVar(&opts.remember, "remember", false, "pre-select remember me")
	cmd.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "print the console URL instead of opening it")
	cmd.Flags().DurationVar(&opts.delay, "redirect-delay", login.DefaultRedirectDelay, "pause on the confirmation before continuing")

	return cmd
}

func runLogin(cmd *cobra.Command, root *rootOptions, opts *loginOptions) error {
	logger := root.logger()
	defer func() { _ = logger.Sync() }()

	store, err := root.store()
	if err != nil {
		return err
	}
	auth, err := login.NewHTTPAuthenticator(root.apiURL, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return err
	}

	target := login.ResolveTarget(root.basePath, root.loginPath(), opts.next)

	var program *tea.Program
	deliver := tui.Navigator(func(msg tea.Msg) { program.Send(msg) })
	nav := login.NavigatorFunc(func(target string) {
		if !opts.noBrowser {
			if err := openURL(root.consoleURL(target)); err != nil {
				logger.Warn("open browser", zap.Error(err))
			}
		}
		deliver.Replace(target)
	})

	flow := login.NewFlow(auth, nav,
		login.WithTarget(target),
		login.WithRedirectDelay(opts.delay),
		login.WithSessionStore(store),
		login.WithLogger(logger),
	)
	defer flow.Close()

	model := tui.New(cmd.Context(), flow,
		tui.WithEmail(opts.email),
		tui.WithRemember(opts.remember),
	)
	program = tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	result, ok := final.(tui.Model)
	if !ok || result.Aborted() || result.Target() == "" {
		return errLoginAborted
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signed in. Session saved to %s\n", store.Path())
	if opts.noBrowser {
		fmt.Fprintf(out, "Continue at %s\n", root.consoleURL(result.Target()))
	}
	return nil
}
