// Package queryauth resolves the dashboard credential from the page address
// or the per-tab storage area.
//
// A credential carried in the "token" query parameter always wins: it is
// validated, persisted, and stripped from the visible address. Without one, a
// previously persisted credential is re-validated before use.
package queryauth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/audit"
	"github.com/chimerakang/standup-go/metrics"
	"github.com/chimerakang/standup-go/token"
)

// Fixed names shared with the page and the storage area.
const (
	ParamName       = "token"
	StorageKeyToken = "github_org_token"
	StorageKeyOrg   = "github_org_name"
)

// State is the resolver's position in its state machine.
type State int

const (
	Idle State = iota
	Resolving
	Authenticated
	Denied
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Denied:
		return "denied"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Config controls resolution.
type Config struct {
	// RequiredOrg restricts org-scoped credentials to this login (case-insensitive).
	RequiredOrg string

	// RedirectOnFailure navigates to ErrorRoute when a URL credential is rejected.
	RedirectOnFailure bool

	// ExpectedType is the credential type to accept. Default: standup.TokenTypeOrg.
	ExpectedType standup.TokenType

	// ErrorRoute receives redirects as ErrorRoute?error=<code>. Default: standup.DefaultErrorRoute.
	ErrorRoute string
}

// Resolver implements standup.Authenticator.
type Resolver struct {
	cfg       Config
	loc       standup.Location
	store     standup.Storage
	validator *token.Validator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     *audit.Logger

	mu    sync.Mutex
	state State
	auth  standup.AuthState
}

var (
	_ standup.Authenticator    = (*Resolver)(nil)
	_ standup.CredentialSource = (*Resolver)(nil)
)

// Option configures the Resolver.
type Option func(*Resolver)

// WithValidator sets the credential validator. Default: token.NewValidator().
func WithValidator(v *token.Validator) Option {
	return func(r *Resolver) { r.validator = v }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records resolution outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithAudit emits an audit event per resolution.
func WithAudit(a *audit.Logger) Option {
	return func(r *Resolver) { r.audit = a }
}

// New creates a resolver reading loc and persisting into store.
func New(loc standup.Location, store standup.Storage, cfg Config, opts ...Option) *Resolver {
	if cfg.ExpectedType == "" {
		cfg.ExpectedType = standup.TokenTypeOrg
	}
	if cfg.ErrorRoute == "" {
		cfg.ErrorRoute = standup.DefaultErrorRoute
	}
	r := &Resolver{
		cfg:       cfg,
		loc:       loc,
		store:     store,
		validator: token.NewValidator(),
		logger:    slog.Default(),
		state:     Idle,
		auth:      standup.AuthState{Loading: true},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve runs one resolution pass and returns the resulting state.
// Failures are reported through AuthState.Err, never as panics.
func (r *Resolver) Resolve(ctx context.Context) standup.AuthState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = Resolving
	r.auth.Loading = true

	u := r.loc.URL()
	if u != nil {
		if raw := u.Query().Get(ParamName); raw != "" {
			return r.fromURL(ctx, u, raw)
		}
	}
	if stored, ok := r.store.Get(StorageKeyToken); ok && stored != "" {
		return r.fromStorage(ctx, stored)
	}

	r.state = Unauthenticated
	r.auth = standup.AuthState{}
	r.record("unauthenticated", "none", "", nil)
	return r.auth
}

func (r *Resolver) fromURL(ctx context.Context, u *url.URL, raw string) standup.AuthState {
	claims, err := r.validator.Validate(ctx, raw, r.cfg.ExpectedType)
	if err != nil {
		return r.deny(err, "url", true)
	}
	if err := r.checkOrg(ctx, raw, claims); err != nil {
		return r.deny(err, "url", true)
	}

	org := claims.OrgName()
	r.store.Set(StorageKeyToken, raw)
	r.store.Set(StorageKeyOrg, org)
	r.stripParam(u)

	return r.accept(raw, org, "url")
}

func (r *Resolver) fromStorage(ctx context.Context, stored string) standup.AuthState {
	claims, err := r.validator.Validate(ctx, stored, r.cfg.ExpectedType)
	if err != nil {
		r.clearStored()
		return r.deny(err, "storage", false)
	}
	if err := r.checkOrg(ctx, stored, claims); err != nil {
		r.clearStored()
		return r.deny(err, "storage", false)
	}

	org, ok := r.store.Get(StorageKeyOrg)
	if !ok || org == "" {
		org = claims.OrgName()
	}
	return r.accept(stored, org, "storage")
}

func (r *Resolver) checkOrg(ctx context.Context, raw string, claims *standup.Claims) error {
	if !claims.OrgScoped() || r.cfg.RequiredOrg == "" {
		return nil
	}
	if r.validator.HasOrgAccess(ctx, raw, r.cfg.RequiredOrg) {
		return nil
	}
	return standup.AccessDenied(r.cfg.RequiredOrg)
}

func (r *Resolver) accept(credential, org, source string) standup.AuthState {
	r.state = Authenticated
	r.auth = standup.AuthState{Authenticated: true, Credential: credential, OrgName: org}
	r.record("authenticated", source, org, nil)
	return r.auth
}

func (r *Resolver) deny(err error, source string, redirectable bool) standup.AuthState {
	r.state = Denied
	r.auth = standup.AuthState{Err: err}
	r.record("denied", source, "", err)
	r.logger.Warn("credential rejected", "source", source, "error", err)

	if redirectable && r.cfg.RedirectOnFailure {
		code := standup.RedirectInvalidToken
		var ae *standup.AuthError
		if errors.As(err, &ae) {
			code = ae.RedirectCode()
		}
		r.loc.Navigate(r.cfg.ErrorRoute + "?" + url.Values{"error": {code}}.Encode())
	}
	return r.auth
}

// stripParam removes the credential from the visible address without navigating.
func (r *Resolver) stripParam(u *url.URL) {
	q := u.Query()
	if !q.Has(ParamName) {
		return
	}
	q.Del(ParamName)
	clean := *u
	clean.RawQuery = q.Encode()
	r.loc.Replace(&clean)
}

func (r *Resolver) clearStored() {
	r.store.Delete(StorageKeyToken)
	r.store.Delete(StorageKeyOrg)
}

func (r *Resolver) record(outcome, source, org string, err error) {
	r.metrics.RecordAuthResolution(outcome, source)

	ev := audit.Event{Action: audit.ActionAuthResolve, Source: source, Org: org, Result: audit.ResultSuccess}
	switch outcome {
	case "denied":
		ev.Result = audit.ResultDenied
	case "unauthenticated":
		ev.Result = audit.ResultEmpty
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.audit.Log(ev)
}

// State returns the current state machine position.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// AuthState returns the result of the last resolution.
func (r *Resolver) AuthState() standup.AuthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auth
}

// Credential resolves and returns the credential when authenticated.
func (r *Resolver) Credential(ctx context.Context) (string, bool) {
	s := r.Resolve(ctx)
	return s.Credential, s.Authenticated
}

// SignOut forgets the persisted credential.
func (r *Resolver) SignOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearStored()
	r.state = Unauthenticated
	r.auth = standup.AuthState{}
}
