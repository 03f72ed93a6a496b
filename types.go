package standup

import "time"

// TokenType is the credential kind asserted by the "type" claim.
type TokenType string

const (
	TokenTypeOrg  TokenType = "github_org"
	TokenTypeUser TokenType = "github_user"
)

// Claims represents the decoded payload of a bearer credential.
type Claims struct {
	Type      TokenType
	Username  string // org login when Type is TokenTypeOrg
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// OrgScoped reports whether the claims assert authority over one organization.
func (c *Claims) OrgScoped() bool { return c != nil && c.Type == TokenTypeOrg }

// OrgName returns the organization login for org-scoped claims, or "".
func (c *Claims) OrgName() string {
	if !c.OrgScoped() {
		return ""
	}
	return c.Username
}

// ExpiredAt reports whether the claims are no longer usable at now.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// AuthState is the outcome of credential resolution.
// Either Authenticated is true and Err is nil, or Authenticated is false.
type AuthState struct {
	Authenticated bool
	Credential    string
	OrgName       string
	Err           error
	Loading       bool
}

// SessionStatus mirrors the host session lifecycle.
type SessionStatus string

const (
	SessionLoading         SessionStatus = "loading"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionUnauthenticated SessionStatus = "unauthenticated"
)

// Session is an established host session that may embed a bearer credential.
type Session struct {
	Status     SessionStatus
	Credential string
	UserName   string
}

// Identity is the response of the "who am I" endpoint.
type Identity struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
}

// TaskStatus is the lifecycle state of a report generation task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is a snapshot of an asynchronous report generation job.
type Task struct {
	ID           string        `json:"id"`
	Status       TaskStatus    `json:"status"`
	Result       []ReportEntry `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// ReportRequest asks the backend to generate a standup report.
// Equal dates produce a single-day report.
type ReportRequest struct {
	OrganizationLogin string `json:"organizationLogin"`
	DateFrom          string `json:"dateFrom"`
	DateTo            string `json:"dateTo"`
}

// ReportEntry is one contributor's standup summary.
type ReportEntry struct {
	Username     string   `json:"username"`
	Name         string   `json:"name,omitempty"`
	AvatarURL    string   `json:"avatarUrl,omitempty"`
	Date         string   `json:"date,omitempty"`
	Summary      string   `json:"summary"`
	Commits      int      `json:"commits"`
	PullRequests int      `json:"pullRequests"`
	Issues       int      `json:"issues"`
	Highlights   []string `json:"highlights,omitempty"`
}

// Report is the outcome of a generation cycle. NoActivity is set, with an
// empty Entries slice, when the backend had nothing to report.
type Report struct {
	TaskID     string        `json:"taskId,omitempty" yaml:"taskId,omitempty"`
	Entries    []ReportEntry `json:"entries" yaml:"entries"`
	NoActivity bool          `json:"noActivity" yaml:"noActivity"`
}

// Partition names an isolated region of the cache store.
type Partition string

const (
	PartitionCommits  Partition = "commits"
	PartitionIssues   Partition = "issues"
	PartitionPulls    Partition = "pulls"
	PartitionActivity Partition = "activity"
)

// Partitions lists every cache partition.
var Partitions = []Partition{PartitionCommits, PartitionIssues, PartitionPulls, PartitionActivity}

// Valid reports whether p is a known partition.
func (p Partition) Valid() bool {
	for _, known := range Partitions {
		if p == known {
			return true
		}
	}
	return false
}

// CacheEntry is one row of a cache partition. Timestamp is in milliseconds.
type CacheEntry[T any] struct {
	Key       string `json:"key"`
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
}
