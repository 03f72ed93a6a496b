package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/fixture"
	"github.com/chimerakang/standup-go/jwks"
	"github.com/chimerakang/standup-go/queryauth"
	"github.com/chimerakang/standup-go/report"
	"github.com/chimerakang/standup-go/token"
	"github.com/spf13/cobra"
)

// defaultLocation stands in for the dashboard address when --url is not given.
const defaultLocation = "standup://cli/"

type reportOptions struct {
	org      string
	from     string
	to       string
	url      string
	token    string
	fixtures bool
	output   string
}

func newReportCmd(a *app) *cobra.Command {
	o := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a standup report",
		Long: `Generate a standup report for an organization and date range.

The credential is taken from --token, the token query parameter of --url, or
the token setting. With --fixtures, local sample data is used when no
credential is available.

Examples:
  standup report --org acme --from 2025-03-01 --to 2025-03-03 --token $TOKEN
  standup report --url "https://dash.example.com/?token=$TOKEN"
  standup report --org acme --fixtures -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd, o)
		},
	}
	today := time.Now().Format(report.DateLayout)
	cmd.Flags().StringVar(&o.org, "org", "", "organization login (default: the credential's organization)")
	cmd.Flags().StringVar(&o.from, "from", today, "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&o.to, "to", today, "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&o.url, "url", "", "dashboard URL carrying a token query parameter")
	cmd.Flags().StringVar(&o.token, "token", "", "bearer credential")
	cmd.Flags().BoolVar(&o.fixtures, "fixtures", false, "use sample data when no credential is available")
	cmd.Flags().StringVarP(&o.output, "output", "o", "table", "output format: table, json, yaml")
	return cmd
}

// location builds the address the resolver reads its credential from.
func location(rawURL, tok string) (*queryauth.MemoryLocation, error) {
	if rawURL == "" {
		rawURL = defaultLocation
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid --url: %w", err)
	}
	if tok != "" {
		q := u.Query()
		q.Set(queryauth.ParamName, tok)
		u.RawQuery = q.Encode()
	}
	return queryauth.NewLocation(u.String())
}

func (a *app) validator() *token.Validator {
	if a.cfg.JWKSURL == "" {
		return token.NewValidator()
	}
	return token.NewValidator(token.WithKeySet(jwks.NewKeySet(a.cfg.JWKSURL)))
}

func (a *app) resolver(loc standup.Location) *queryauth.Resolver {
	return queryauth.New(loc, queryauth.NewMemoryStorage(), queryauth.Config{
		RequiredOrg:       a.cfg.RequiredOrg,
		RedirectOnFailure: a.cfg.RedirectOnFailure,
		ErrorRoute:        a.cfg.ErrorRoute,
	},
		queryauth.WithValidator(a.validator()),
		queryauth.WithLogger(a.logger),
		queryauth.WithMetrics(a.metrics),
		queryauth.WithAudit(a.audit),
	)
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func (a *app) runReport(cmd *cobra.Command, o *reportOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	tok := o.token
	if tok == "" && o.url == "" {
		tok = a.cfg.Token
	}
	loc, err := location(o.url, tok)
	if err != nil {
		return err
	}

	res := a.resolver(loc)
	st := res.Resolve(ctx)
	if st.Err != nil {
		for _, to := range loc.Navigations() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", infoFmt("redirect:"), to)
		}
		return st.Err
	}
	ctx = standup.WithAuthState(ctx, st)

	cfg := a.cfg.Client()
	cfg.UseFixtures = cfg.UseFixtures || o.fixtures

	hc := a.httpClient()
	opts := []report.Option{
		report.WithPollInterval(cfg.PollInterval),
		report.WithLogger(a.logger),
		report.WithMetrics(a.metrics),
		report.WithAudit(a.audit),
	}
	if cfg.UseFixtures {
		opts = append(opts, report.WithFallback(fixture.NewSource()))
	}
	orch := report.New(report.NewHTTPSource(cfg, hc), standup.ContextCredentials, opts...)

	client, err := standup.NewClient(cfg,
		standup.WithLogger(a.logger),
		standup.WithHTTPClient(hc),
		standup.WithAuthenticator(res),
		standup.WithReportGenerator(orch),
	)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	req := standup.ReportRequest{OrganizationLogin: o.org, DateFrom: o.from, DateTo: o.to}
	if req.OrganizationLogin == "" {
		req.OrganizationLogin = standup.OrgNameFromContext(ctx)
	}

	errOut := cmd.ErrOrStderr()
	rep, err := client.Reports().Run(ctx, req, func(t standup.Task) {
		fmt.Fprintf(errOut, "%s task %s %s\n", dimFmt("..."), t.ID, t.Status)
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := printStructured(out, o.output, rep); done {
		return err
	}
	if rep.NoActivity {
		fmt.Fprintln(out, infoFmt(fmt.Sprintf("No activity for %s between %s and %s.", req.OrganizationLogin, req.DateFrom, req.DateTo)))
		return nil
	}
	printEntries(out, req, rep.Entries)
	return nil
}

func printEntries(w io.Writer, req standup.ReportRequest, entries []standup.ReportEntry) {
	fmt.Fprintf(w, "%s %s (%s..%s)\n\n", headFmt("Standup"), req.OrganizationLogin, req.DateFrom, req.DateTo)
	if len(entries) == 0 {
		fmt.Fprintln(w, dimFmt("No entries."))
		return
	}
	for _, e := range entries {
		name := e.Username
		if e.Name != "" {
			name = fmt.Sprintf("%s (%s)", e.Name, e.Username)
		}
		fmt.Fprintf(w, "%s  %s\n", okFmt(name), dimFmt(fmt.Sprintf("%d commits, %d PRs, %d issues", e.Commits, e.PullRequests, e.Issues)))
		fmt.Fprintf(w, "  %s\n", e.Summary)
		for _, h := range e.Highlights {
			fmt.Fprintf(w, "  - %s\n", h)
		}
		fmt.Fprintln(w, strings.Repeat("-", 40))
	}
}
