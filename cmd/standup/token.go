package main

import (
	"fmt"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with dashboard credentials",
	}

	var (
		expected string
		org      string
	)
	inspect := &cobra.Command{
		Use:   "inspect [TOKEN]",
		Short: "Decode a credential and check whether it would be accepted",
		Long: `Decode a credential's payload and run the same checks the resolver applies.

The signature is only verified when jwks_url is configured.

Examples:
  standup token inspect $TOKEN
  standup token inspect $TOKEN --org acme`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok := a.cfg.Token
			if len(args) == 1 {
				tok = args[0]
			}
			if tok == "" {
				return standup.ErrNotAuthenticated
			}
			if org == "" {
				org = a.cfg.RequiredOrg
			}

			ctx := cmd.Context()
			v := a.validator()
			out := cmd.OutOrStdout()

			claims, err := v.Parse(ctx, tok)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", headFmt("Claims"))
			fmt.Fprintf(out, "  Type:     %s\n", claims.Type)
			fmt.Fprintf(out, "  Username: %s\n", claims.Username)
			fmt.Fprintf(out, "  Subject:  %s\n", claims.Subject)
			fmt.Fprintf(out, "  Issued:   %s\n", formatTime(claims.IssuedAt))
			fmt.Fprintf(out, "  Expires:  %s\n", formatTime(claims.ExpiresAt))

			if _, err := v.Validate(ctx, tok, standup.TokenType(expected)); err != nil {
				fmt.Fprintf(out, "%s %v\n", errFmt("Rejected:"), err)
				return err
			}
			if org != "" && !v.HasOrgAccess(ctx, tok, org) {
				err := standup.AccessDenied(org)
				fmt.Fprintf(out, "%s %v\n", errFmt("Rejected:"), err)
				return err
			}
			fmt.Fprintln(out, okFmt("Valid"))
			return nil
		},
	}
	inspect.Flags().StringVar(&expected, "type", string(standup.TokenTypeOrg), "expected credential type")
	inspect.Flags().StringVar(&org, "org", "", "organization the credential must grant (default: required_org)")

	cmd.AddCommand(inspect)
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return dimFmt("(none)")
	}
	return t.UTC().Format(time.RFC3339)
}
