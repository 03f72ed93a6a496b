package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/session"
	"github.com/spf13/cobra"
)

// cliHost ends the "session" by telling the user the credential was dropped.
type cliHost struct{ w io.Writer }

func (h cliHost) SignOut(context.Context) error {
	fmt.Fprintln(h.w, infoFmt("Credential rejected; signed out."))
	return nil
}

func newWhoamiCmd(a *app) *cobra.Command {
	var tok string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Validate a credential against the backend and show its identity",
		Long: `Call the backend's who-am-I endpoint with the credential.

A rejected credential exits non-zero.

Examples:
  standup whoami --token $TOKEN
  STANDUP_TOKEN=$TOKEN standup whoami -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tok == "" {
				tok = a.cfg.Token
			}
			if tok == "" {
				return standup.ErrNotAuthenticated
			}
			if a.cfg.BaseURL == "" {
				return errors.New("base_url is not configured")
			}
			cfg := a.cfg.Client()

			loc, err := location("", "")
			if err != nil {
				return err
			}
			v := session.New(
				session.NewHTTPBackend(cfg.BaseURL, cfg.WhoAmIPath, a.httpClient()),
				cliHost{w: cmd.ErrOrStderr()},
				loc,
				session.WithLogger(a.logger),
				session.WithMetrics(a.metrics),
				session.WithAudit(a.audit),
			)
			if err := v.Evaluate(cmd.Context(), standup.Session{Status: standup.SessionAuthenticated, Credential: tok}); err != nil {
				return err
			}

			id, _ := v.Identity(tok)
			output, _ := cmd.Flags().GetString("output")
			out := cmd.OutOrStdout()
			if done, err := printStructured(out, output, id); done {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", okFmt("Authenticated as"), id.Login)
			if id.Name != "" {
				fmt.Fprintf(out, "  Name: %s\n", id.Name)
			}
			if id.Type != "" {
				fmt.Fprintf(out, "  Type: %s\n", id.Type)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tok, "token", "", "bearer credential")
	cmd.Flags().StringP("output", "o", "table", "output format: table, json, yaml")
	return cmd
}
