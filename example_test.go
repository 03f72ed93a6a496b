package standup_test

import (
	"context"
	"fmt"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/fixture"
	"github.com/chimerakang/standup-go/queryauth"
	"github.com/chimerakang/standup-go/report"
)

// A dashboard wires a resolver reading the page address and an orchestrator
// calling the backend with the resolved credential. Here the credential is
// missing, so the opt-in fixture source serves the report.
func Example() {
	loc, _ := queryauth.NewLocation("https://dash.example.com/")
	resolver := queryauth.New(loc, queryauth.NewMemoryStorage(), queryauth.Config{})

	orch := report.New(
		report.NewHTTPSource(standup.Config{BaseURL: "https://standup.example.com"}, nil),
		resolver,
		report.WithFallback(fixture.NewSource()),
		report.WithPollInterval(time.Millisecond),
	)

	client, err := standup.NewClient(
		standup.Config{BaseURL: "https://standup.example.com", UseFixtures: true},
		standup.WithAuthenticator(resolver),
		standup.WithReportGenerator(orch),
	)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()
	fmt.Println("authenticated:", client.Auth().Resolve(ctx).Authenticated)

	rep, err := client.Reports().Run(ctx, standup.ReportRequest{
		OrganizationLogin: "acme",
		DateFrom:          "2025-03-03",
		DateTo:            "2025-03-03",
	}, nil)
	if err != nil {
		panic(err)
	}
	for _, e := range rep.Entries {
		fmt.Printf("%s: %d commits\n", e.Username, e.Commits)
	}
	// Output:
	// authenticated: false
	// octocat: 7 commits
	// hubot: 3 commits
	// monalisa: 0 commits
}
