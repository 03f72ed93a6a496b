package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/activity"
	"github.com/chimerakang/standup-go/cache"
	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the CLI away from any real config or cache.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("STANDUP_CACHE_PATH", filepath.Join(dir, "cache.db"))
	t.Setenv("STANDUP_POLL_INTERVAL", "1ms")
	color.NoColor = true
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func orgToken(t *testing.T, org string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type":     "github_org",
		"username": org,
		"sub":      "org:" + org,
		"iat":      time.Now().Add(-time.Minute).Unix(),
		"exp":      exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestReport_Fixtures(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "report", "--fixtures", "--org", "acme", "--from", "2025-03-01", "--to", "2025-03-02", "-o", "json")
	require.NoError(t, err)

	var rep standup.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Len(t, rep.Entries, 3)
	assert.False(t, rep.NoActivity)
}

func TestReport_NotAuthenticated(t *testing.T) {
	isolate(t)
	t.Setenv("STANDUP_BASE_URL", "http://127.0.0.1:1")

	_, _, err := run(t, "report", "--org", "acme")
	assert.ErrorIs(t, err, standup.ErrNotAuthenticated)
}

func TestReport_InvalidToken(t *testing.T) {
	isolate(t)
	t.Setenv("STANDUP_BASE_URL", "http://127.0.0.1:1")

	_, _, err := run(t, "report", "--token", "not-a-token")
	require.Error(t, err)
	assert.Equal(t, "Invalid token format", err.Error())
}

func TestReport_Backend(t *testing.T) {
	isolate(t)
	tok := orgToken(t, "acme", time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+tok, r.Header.Get("Authorization"))
		if r.Method == http.MethodPost {
			var req standup.ReportRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "acme", req.OrganizationLogin, "org defaults to the credential's")
			_, _ = w.Write([]byte(`{"taskId":"t9"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"t9","status":"completed","result":[{"username":"octocat","summary":"Shipped caching","commits":4}]}`))
	}))
	defer srv.Close()
	t.Setenv("STANDUP_BASE_URL", srv.URL)

	out, errOut, err := run(t, "report", "--url", "https://dash.example.com/?token="+tok, "--from", "2025-03-01", "--to", "2025-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "octocat")
	assert.Contains(t, out, "Shipped caching")
	assert.Contains(t, errOut, "t9 completed")
}

func TestReport_NoActivity(t *testing.T) {
	isolate(t)
	tok := orgToken(t, "acme", time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	t.Setenv("STANDUP_BASE_URL", srv.URL)

	out, _, err := run(t, "report", "--token", tok)
	require.NoError(t, err)
	assert.Contains(t, out, "No activity for acme")
}

func TestReport_RequiredOrg(t *testing.T) {
	isolate(t)
	t.Setenv("STANDUP_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("STANDUP_REQUIRED_ORG", "globex")

	_, _, err := run(t, "report", "--token", orgToken(t, "acme", time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.True(t, standup.IsAuthCode(err, standup.CodeAccessDenied))
}

func TestTokenInspect(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "token", "inspect", orgToken(t, "acme", time.Now().Add(time.Hour)), "--org", "ACME")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: acme")
	assert.Contains(t, out, "Valid")

	out, _, err = run(t, "token", "inspect", orgToken(t, "acme", time.Now().Add(-time.Hour)))
	require.Error(t, err)
	assert.Contains(t, out, "Token expired")

	_, _, err = run(t, "token", "inspect", orgToken(t, "acme", time.Now().Add(time.Hour)), "--org", "globex")
	assert.True(t, standup.IsAuthCode(err, standup.CodeAccessDenied))
}

func TestWhoami(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"login":"octocat","name":"Mona"}`))
	}))
	defer srv.Close()
	t.Setenv("STANDUP_BASE_URL", srv.URL)

	out, _, err := run(t, "whoami", "--token", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated as octocat")

	_, errOut, err := run(t, "whoami", "--token", "bad")
	require.ErrorIs(t, err, standup.ErrSessionRejected)
	assert.Contains(t, errOut, "signed out")
}

func TestActivityAndCacheClear(t *testing.T) {
	isolate(t)

	out, _, err := run(t, "activity", "--org", "acme", "--fixtures", "-o", "json")
	require.NoError(t, err)
	var totals []activity.UserActivity
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	assert.Len(t, totals, 3)

	out, _, err = run(t, "cache", "clear", "commits")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared commits")
	assert.NotContains(t, out, "cleared issues")

	out, _, err = run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared activity")

	_, _, err = run(t, "cache", "clear", "users")
	assert.Error(t, err)
}

func TestActivity_RequiresFixtures(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "activity", "--org", "acme")
	assert.Error(t, err)
}

func TestMetricsFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "standup.prom")

	_, _, err := run(t, "--metrics-file", path, "report", "--fixtures", "--org", "acme", "-o", "json")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `standup_report_runs_total{result="completed"} 1`)
}

func TestOutputFormat_Unknown(t *testing.T) {
	isolate(t)
	_, _, err := run(t, "report", "--fixtures", "--org", "acme", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestReport_RedirectOnFailure(t *testing.T) {
	isolate(t)
	t.Setenv("STANDUP_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("STANDUP_REDIRECT_ON_FAILURE", "true")

	_, errOut, err := run(t, "report", "--token", orgToken(t, "acme", time.Now().Add(-time.Hour)))
	require.Error(t, err)
	assert.Contains(t, errOut, "/auth/error?error=InvalidToken")
}

func TestOpenCache_DefaultStore(t *testing.T) {
	t.Setenv(cache.EnvPath, filepath.Join(t.TempDir(), "cache.db"))

	a := &app{}
	a.cfg.Cache.TTL = standup.DefaultCacheTTL
	s1, release1 := a.openCache()
	defer release1()
	s2, release2 := a.openCache()
	defer release2()
	assert.Same(t, s1, s2)
	assert.Same(t, cache.Default(), s1)

	a.cfg.Cache.Path = filepath.Join(t.TempDir(), "explicit.db")
	s3, release3 := a.openCache()
	defer release3()
	assert.NotSame(t, s1, s3)
	assert.True(t, s3.Persistent())
}
