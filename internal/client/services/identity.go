// Package services contains the application services of the promoconsig
// client. The identity resolver turns credentials into a session bound to
// one employment record.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/azfinis/promoconsig/internal/client/apiclient"
	"github.com/azfinis/promoconsig/internal/client/models"
	"github.com/azfinis/promoconsig/internal/client/session"
	"github.com/azfinis/promoconsig/internal/logging"
)

type State uint8

const (
	Idle State = iota
	Authenticating
	ProfileFetching
	Resolved
	NoRegistration
	AwaitingDisambiguation
	Cancelled
	Failed
)

var stateNames = [...]string{
	Idle:                   "idle",
	Authenticating:         "authenticating",
	ProfileFetching:        "profile_fetching",
	Resolved:               "resolved",
	NoRegistration:         "no_registration",
	AwaitingDisambiguation: "awaiting_disambiguation",
	Cancelled:              "cancelled",
	Failed:                 "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// CancelPolicy decides what Cancel does with the session persisted during
// the attempt.
type CancelPolicy uint8

const (
	// CancelKeepSession leaves token and profile in place so the user can
	// pick a registration later without logging in again.
	CancelKeepSession CancelPolicy = iota
	// CancelRollbackSession clears token, profile and employment. The last
	// username is kept.
	CancelRollbackSession
)

func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return CancelKeepSession, nil
	case "rollback":
		return CancelRollbackSession, nil
	}
	return 0, fmt.Errorf("unknown cancel policy %q", s)
}

// Outcome is a non-failing end of a resolver step.
type Outcome struct {
	State   State
	Session models.Session
	// Candidates is set only in AwaitingDisambiguation.
	Candidates []models.CandidateRegistration
}

// ConsentRequired reports whether the user still has to accept the terms.
func (o *Outcome) ConsentRequired() bool {
	return o != nil && o.Session.User != nil && !o.Session.User.TermsAccepted
}

type ResolverOptions struct {
	CancelPolicy CancelPolicy
	Logger       logging.Logger
}

// Resolver runs one authentication attempt at a time. It does not reject a
// concurrent Resolve; callers are expected to serialize user actions.
type Resolver struct {
	api    apiclient.API
	store  session.Store
	policy CancelPolicy
	logger logging.Logger

	mu      sync.Mutex
	state   State
	pending *pendingChoice
}

// pendingChoice is what a suspended attempt needs to resume.
type pendingChoice struct {
	token      *apiclient.Token
	document   string
	candidates []models.CandidateRegistration
}

func NewResolver(api apiclient.API, store session.Store, opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{api: api, store: store, policy: opts.CancelPolicy, logger: logger}
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Pending returns the candidates awaiting a choice, or nil.
func (r *Resolver) Pending() []models.CandidateRegistration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return nil
	}
	return cloneCandidates(r.pending.candidates)
}

// Resolve logs in with creds and binds the session to an employment record.
// Any pending choice from an earlier attempt is discarded.
func (r *Resolver) Resolve(ctx context.Context, creds models.Credentials) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = nil
	r.transition(ctx, Idle)
	r.transition(ctx, Authenticating, "username", creds.Username)

	token, err := r.api.Login(ctx, creds)
	if err != nil {
		return nil, r.fail(ctx, loginErrorKind(err), err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, r.fail(ctx, TokenMissing, apiclient.ErrTokenMissing)
	}

	r.transition(ctx, ProfileFetching)
	profile, err := r.api.Me(ctx, token)
	if err != nil {
		return nil, r.fail(ctx, ProfileFetchFailed, err)
	}

	err = r.store.SetAuthenticated(ctx, session.Auth{
		Token:     token.AccessToken,
		TokenType: token.TokenType,
		Expiry:    token.Expiry,
		User:      profile,
		Username:  creds.Username,
	})
	if err != nil {
		return nil, r.fail(ctx, ProfileFetchFailed, err)
	}

	document := NormalizeDocument(profile.DocumentNumber)
	if document == "" {
		r.transition(ctx, Resolved, "employment", false)
		return r.outcome(ctx, Resolved, nil), nil
	}

	candidates, err := r.api.ListRegistrations(ctx, token, document)
	if err != nil {
		return nil, r.fail(ctx, EmploymentFetchFailed, err)
	}

	switch len(candidates) {
	case 0:
		r.transition(ctx, NoRegistration)
		return nil, &AuthError{Kind: NoRegistrationFound}
	case 1:
		return r.bind(ctx, token, document, candidates[0].RegistrationCode)
	default:
		r.pending = &pendingChoice{token: token, document: document, candidates: candidates}
		r.transition(ctx, AwaitingDisambiguation, "candidates", len(candidates))
		return r.outcome(ctx, AwaitingDisambiguation, cloneCandidates(candidates)), nil
	}
}

// SelectRegistration resumes a suspended attempt with the chosen code.
func (r *Resolver) SelectRegistration(ctx context.Context, code string) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != AwaitingDisambiguation || r.pending == nil {
		return nil, ErrNothingPending
	}
	if !containsCode(r.pending.candidates, code) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegistration, code)
	}

	p := r.pending
	r.pending = nil
	return r.bind(ctx, p.token, p.document, code)
}

// Cancel abandons a pending choice. What happens to the persisted session
// depends on the cancel policy; a rollback failure is logged, not returned.
func (r *Resolver) Cancel(ctx context.Context) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Cancelled {
		return r.outcome(ctx, Cancelled, nil), nil
	}
	if r.state != AwaitingDisambiguation {
		return nil, ErrNothingPending
	}

	r.pending = nil
	if r.policy == CancelRollbackSession {
		if err := r.store.ClearAuthentication(ctx); err != nil {
			r.logger.Error(ctx, "rollback after cancel failed", "error", err)
		}
	}
	r.transition(ctx, Cancelled, "rollback", r.policy == CancelRollbackSession)
	return r.outcome(ctx, Cancelled, nil), nil
}

// bind fetches the employment detail for code, merges its display name into
// the profile and persists both. Callers hold r.mu.
func (r *Resolver) bind(ctx context.Context, token *apiclient.Token, document, code string) (*Outcome, error) {
	rec, err := r.api.GetEmployment(ctx, token, document, code)
	if err != nil {
		return nil, r.fail(ctx, EmploymentFetchFailed, err)
	}

	if err := r.store.BindEmployment(ctx, rec); err != nil {
		return nil, r.fail(ctx, EmploymentFetchFailed, err)
	}

	r.transition(ctx, Resolved, "registration", code)
	return r.outcome(ctx, Resolved, nil), nil
}

func (r *Resolver) outcome(ctx context.Context, state State, candidates []models.CandidateRegistration) *Outcome {
	return &Outcome{State: state, Session: r.store.Get(ctx), Candidates: candidates}
}

func (r *Resolver) fail(ctx context.Context, kind Kind, err error) *AuthError {
	ae := newAuthError(kind, err)
	r.state = Failed
	r.logger.Warn(ctx, "authentication failed", "kind", kind.String(), "error", err)
	return ae
}

func (r *Resolver) transition(ctx context.Context, to State, args ...any) {
	r.state = to
	r.logger.Debug(ctx, "resolver state", append([]any{"state", to.String()}, args...)...)
}

// VerifyCredentials checks creds against the Login API without touching the
// resolver state or the session.
func (r *Resolver) VerifyCredentials(ctx context.Context, creds models.Credentials) error {
	token, err := r.api.Login(ctx, creds)
	if err != nil {
		return newAuthError(loginErrorKind(err), err)
	}
	if token == nil || token.AccessToken == "" {
		return newAuthError(TokenMissing, apiclient.ErrTokenMissing)
	}
	return nil
}

func loginErrorKind(err error) Kind {
	switch {
	case errors.Is(err, apiclient.ErrTokenMissing):
		return TokenMissing
	case errors.Is(err, apiclient.ErrRejected), errors.Is(err, apiclient.ErrNotFound):
		return InvalidCredentials
	default:
		return NetworkFailure
	}
}

// NormalizeDocument strips the punctuation of a formatted CPF/CNPJ.
func NormalizeDocument(doc string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '/':
			return -1
		}
		return r
	}, strings.TrimSpace(doc))
}

func containsCode(list []models.CandidateRegistration, code string) bool {
	for _, c := range list {
		if c.RegistrationCode == code {
			return true
		}
	}
	return false
}

func cloneCandidates(in []models.CandidateRegistration) []models.CandidateRegistration {
	out := make([]models.CandidateRegistration, len(in))
	copy(out, in)
	return out
}
