package standup

import (
	"context"
	"net/url"
)

// Location is the page address the dashboard is served from.
type Location interface {
	// URL returns the current address.
	URL() *url.URL

	// Replace swaps the visible address without triggering navigation.
	Replace(u *url.URL)

	// Navigate moves to another route, e.g. "/auth/error?error=InvalidToken".
	Navigate(path string)
}

// Storage is the per-tab key-value area. Last write wins; no locking semantics.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// SessionHost owns the established user session.
type SessionHost interface {
	// SignOut terminates the host session.
	SignOut(ctx context.Context) error
}

// CredentialSource yields the bearer credential for backend calls.
// ok is false when no usable credential is available.
type CredentialSource interface {
	Credential(ctx context.Context) (credential string, ok bool)
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (string, bool)

// Credential implements CredentialSource.
func (f CredentialFunc) Credential(ctx context.Context) (string, bool) { return f(ctx) }

// ReportSource submits report generation jobs and reports their progress.
// Implementations: report.HTTPSource (backend), fixture.Source (local data).
type ReportSource interface {
	// Generate submits a job and returns its task ID.
	// It returns ErrNoActivity when the backend has nothing to report.
	Generate(ctx context.Context, credential string, req ReportRequest) (string, error)

	// Task returns the latest snapshot of a job.
	Task(ctx context.Context, credential, taskID string) (*Task, error)
}

// Authenticator resolves the current credential into an AuthState.
type Authenticator interface {
	Resolve(ctx context.Context) AuthState
}

// SessionGuard revalidates the credential embedded in a host session.
type SessionGuard interface {
	Evaluate(ctx context.Context, s Session) error
	Status(underlying SessionStatus) SessionStatus
}

// ReportGenerator runs a full generate-and-poll cycle.
type ReportGenerator interface {
	Run(ctx context.Context, req ReportRequest, onProgress func(Task)) (*Report, error)
}
