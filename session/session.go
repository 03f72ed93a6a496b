// Package session revalidates the bearer credential embedded in an
// established host session.
//
// Each distinct credential is checked against the backend's "who am I"
// endpoint at most once per process. A rejected credential is fatal: the host
// session is signed out and the user is sent to the landing route.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/audit"
	"github.com/chimerakang/standup-go/metrics"
)

// Backend defines the contract for identity lookups (HTTP, fake, etc.).
type Backend interface {
	// WhoAmI returns the identity behind credential, or an error if the
	// backend refuses it.
	WhoAmI(ctx context.Context, credential string) (*standup.Identity, error)
}

// Validator implements standup.SessionGuard.
type Validator struct {
	backend Backend
	host    standup.SessionHost
	loc     standup.Location
	landing string
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Logger

	inFlight atomic.Bool

	mu        sync.Mutex
	validated map[string]*standup.Identity
	rejected  map[string]error
}

var _ standup.SessionGuard = (*Validator)(nil)

// Option configures the Validator.
type Option func(*Validator)

// WithLandingRoute sets where rejected sessions are sent. Default: "/".
func WithLandingRoute(path string) Option {
	return func(v *Validator) { v.landing = path }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithMetrics records validation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// WithAudit emits audit events for validations and forced sign-outs.
func WithAudit(a *audit.Logger) Option {
	return func(v *Validator) { v.audit = a }
}

// New creates a new session validator.
func New(backend Backend, host standup.SessionHost, loc standup.Location, opts ...Option) *Validator {
	v := &Validator{
		backend:   backend,
		host:      host,
		loc:       loc,
		landing:   "/",
		logger:    slog.Default(),
		validated: make(map[string]*standup.Identity),
		rejected:  make(map[string]error),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Evaluate validates the session's credential if it has not been validated
// yet. It is safe to call on every re-evaluation of the session; concurrent
// calls while a validation is running return ErrValidationInFlight without
// contacting the backend.
func (v *Validator) Evaluate(ctx context.Context, s standup.Session) error {
	if s.Status != standup.SessionAuthenticated || s.Credential == "" {
		return nil
	}
	if done, err := v.settled(s.Credential); done {
		return err
	}
	if !v.inFlight.CompareAndSwap(false, true) {
		v.logger.Debug("session validation already in flight")
		return standup.ErrValidationInFlight
	}
	defer v.inFlight.Store(false)

	// A concurrent caller may have finished between the check and the swap.
	if done, err := v.settled(s.Credential); done {
		return err
	}

	// Outliving the caller is intended: a torn-down consumer must not turn
	// into a sign-out.
	ctx = context.WithoutCancel(ctx)

	id, err := v.backend.WhoAmI(ctx, s.Credential)
	if err != nil {
		rejected := fmt.Errorf("%w: %v", standup.ErrSessionRejected, err)
		v.mu.Lock()
		v.rejected[s.Credential] = rejected
		v.mu.Unlock()
		v.reject(ctx, err)
		return rejected
	}
	if id == nil {
		id = &standup.Identity{}
	}

	v.mu.Lock()
	v.validated[s.Credential] = id
	v.mu.Unlock()

	v.metrics.RecordSessionValidation("ok")
	v.audit.Log(audit.Event{
		Action:  audit.ActionSessionValidate,
		Result:  audit.ResultSuccess,
		Subject: id.Login,
		Source:  "session",
	})
	return nil
}

func (v *Validator) reject(ctx context.Context, cause error) {
	v.metrics.RecordSessionValidation("rejected")
	v.logger.Warn("session credential rejected, signing out", "error", cause)

	ev := audit.Event{
		Action: audit.ActionSessionSignOut,
		Result: audit.ResultSuccess,
		Source: "session",
		Error:  cause.Error(),
	}
	if err := v.host.SignOut(ctx); err != nil {
		v.logger.Error("sign-out failed", "error", err)
		ev.Result = audit.ResultFailure
	}
	v.audit.Log(ev)
	v.loc.Navigate(v.landing)
}

// settled reports whether credential was already checked, and the
// rejection if it failed. A rejected credential is never checked again.
func (v *Validator) settled(credential string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err, ok := v.rejected[credential]; ok {
		return true, err
	}
	_, ok := v.validated[credential]
	return ok, nil
}

// Status reports loading while a validation runs, otherwise underlying.
func (v *Validator) Status(underlying standup.SessionStatus) standup.SessionStatus {
	if v.inFlight.Load() {
		return standup.SessionLoading
	}
	return underlying
}

// Identity returns the identity recorded for a validated credential.
func (v *Validator) Identity(credential string) (*standup.Identity, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.validated[credential]
	return id, ok
}
