package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/chimerakang/standup-go/activity"
	"github.com/chimerakang/standup-go/fixture"
	"github.com/chimerakang/standup-go/report"
	"github.com/spf13/cobra"
)

func newActivityCmd(a *app) *cobra.Command {
	var (
		r        activity.Range
		fixtures bool
		output   string
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show per-contributor activity totals",
		Long: `Aggregate commits, issues and pull requests per contributor.

Results are cached locally for the configured TTL. No upstream provider is
built in; use --fixtures for sample data.

Examples:
  standup activity --org acme --fixtures
  standup activity --org acme --from 2025-03-01 --to 2025-03-07 --fixtures -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures = fixtures || a.cfg.UseFixtures
			if !fixtures {
				return errors.New("no upstream activity provider configured; use --fixtures")
			}
			if r.Org == "" {
				return errors.New("--org is required")
			}

			store, release := a.openCache()
			defer release()

			svc := activity.New(fixture.Fetcher{}, store, activity.WithLogger(a.logger))
			totals, err := svc.Aggregate(cmd.Context(), r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if done, err := printStructured(out, output, totals); done {
				return err
			}
			fmt.Fprintf(out, "%s %s (%s..%s)\n", headFmt("Activity"), r.Org, r.From, r.To)
			fmt.Fprintf(out, "%-20s %8s %8s %8s\n", "USER", "COMMITS", "PRS", "ISSUES")
			for _, t := range totals {
				fmt.Fprintf(out, "%-20s %8d %8d %8d\n", t.Username, t.Commits, t.PullRequests, t.Issues)
			}
			return nil
		},
	}
	today := time.Now().Format(report.DateLayout)
	cmd.Flags().StringVar(&r.Org, "org", "", "organization login")
	cmd.Flags().StringVar(&r.From, "from", today, "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&r.To, "to", today, "last day, YYYY-MM-DD")
	cmd.Flags().BoolVar(&fixtures, "fixtures", false, "use sample data")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json, yaml")
	return cmd
}
