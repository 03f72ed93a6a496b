//go:build integration

package standup_test

import (
	"context"
	"os"
	"testing"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/queryauth"
	"github.com/chimerakang/standup-go/report"
	"github.com/chimerakang/standup-go/session"
	"github.com/chimerakang/standup-go/token"
)

// These tests run against a live report backend:
//
//	STANDUP_BASE_URL=https://standup.example.com STANDUP_TOKEN=... \
//	  go test -tags=integration ./...
//
// STANDUP_ORG and STANDUP_DATE (YYYY-MM-DD) narrow the report request.

func liveConfig(t *testing.T) (standup.Config, string) {
	t.Helper()
	base, tok := os.Getenv("STANDUP_BASE_URL"), os.Getenv("STANDUP_TOKEN")
	if base == "" || tok == "" {
		t.Skip("Skipping integration test (STANDUP_BASE_URL or STANDUP_TOKEN not set)")
	}
	return standup.Config{BaseURL: base}.WithDefaults(), tok
}

type noopHost struct{}

func (noopHost) SignOut(context.Context) error { return nil }

func TestLiveWhoAmI(t *testing.T) {
	cfg, tok := liveConfig(t)
	loc, _ := queryauth.NewLocation("/")

	v := session.New(session.NewHTTPBackend(cfg.BaseURL, cfg.WhoAmIPath, nil), noopHost{}, loc)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := v.Evaluate(ctx, standup.Session{Status: standup.SessionAuthenticated, Credential: tok}); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if id, ok := v.Identity(tok); !ok || id.Login == "" {
		t.Errorf("Identity() = %v, %v", id, ok)
	}
}

func TestLiveReport(t *testing.T) {
	cfg, tok := liveConfig(t)

	org := os.Getenv("STANDUP_ORG")
	if org == "" {
		claims, err := token.Parse(tok)
		if err != nil {
			t.Fatalf("Parse() error: %v", err)
		}
		org = claims.OrgName()
	}
	day := os.Getenv("STANDUP_DATE")
	if day == "" {
		day = time.Now().AddDate(0, 0, -1).Format(report.DateLayout)
	}

	o := report.New(report.NewHTTPSource(cfg, nil), standup.CredentialFunc(func(context.Context) (string, bool) {
		return tok, true
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	rep, err := o.Run(ctx, standup.ReportRequest{OrganizationLogin: org, DateFrom: day, DateTo: day}, func(task standup.Task) {
		t.Logf("task %s: %s", task.ID, task.Status)
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.Entries == nil {
		t.Error("Entries should never be nil on success")
	}
	t.Logf("%d entries (no activity: %v)", len(rep.Entries), rep.NoActivity)
}
