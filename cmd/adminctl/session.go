package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"finitefield.org/tenant-admin/internal/admin/credstore"
	"finitefield.org/tenant-admin/internal/admin/templates/helpers"
)

var errNotSignedIn = errors.New("not signed in; run `adminctl login`")

// now is replaced in tests.
var now = time.Now

func newLogoutCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.store()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in staff member",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := root.store()
			if err != nil {
				return err
			}
			rec, err := store.Load()
			if errors.Is(err, credstore.ErrNotFound) {
				return errNotSignedIn
			}
			if err != nil {
				return err
			}

			current := now()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rec.User.Email)
			if rec.User.TenantID != "" {
				fmt.Fprintf(out, "tenant:  %s\n", rec.User.TenantID)
			}
			if len(rec.User.Roles) > 0 {
				fmt.Fprintf(out, "roles:   %s\n", strings.Join(rec.User.Roles, ", "))
			}
			fmt.Fprintf(out, "service: %s\n", rec.APIURL)
			if !rec.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "expires: %s (%s)\n", helpers.Until(rec.ExpiresAt, current), rec.ExpiresAt.UTC().Format(time.RFC3339))
			}
			if rec.Expired(current) {
				return errNotSignedIn
			}
			return nil
		},
	}
}
