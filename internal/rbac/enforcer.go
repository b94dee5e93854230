package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Adapter names reported in decisions.
const (
	AdapterRoute = "route"
	AdapterUI    = "ui"
	AdapterAPI   = "api"
)

// Outcome classifies a single enforcement decision.
type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeError           Outcome = "error"
)

// Decision is reported to the Observer after every check.
type Decision struct {
	Adapter     string
	Principal   *Principal
	Requirement Requirement
	Outcome     Outcome
	Resource    string
	At          time.Time
}

// Allowed reports whether the decision let the request through.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Observer receives enforcement decisions. It must not block and cannot
// change a decision.
type Observer interface {
	ObserveDecision(ctx context.Context, d Decision)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, d Decision)

// ObserveDecision implements Observer.
func (f ObserverFunc) ObserveDecision(ctx context.Context, d Decision) {
	f(ctx, d)
}

type multiObserver []Observer

func (m multiObserver) ObserveDecision(ctx context.Context, d Decision) {
	for _, o := range m {
		o.ObserveDecision(ctx, d)
	}
}

// Observers fans decisions out to every non-nil observer.
func Observers(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Enforcer binds the evaluator to the enforcement adapters: route guard
// (Middleware), UI gate (Gate) and API guard (Authorize).
type Enforcer struct {
	evaluator *Evaluator
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
}

// NewEnforcer constructs an Enforcer. logger and observer may be nil.
func NewEnforcer(evaluator *Evaluator, logger *slog.Logger, observer Observer) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{evaluator: evaluator, logger: logger, observer: observer, now: time.Now}
}

// Evaluator exposes the underlying evaluator.
func (e *Enforcer) Evaluator() *Evaluator {
	return e.evaluator
}

// Authorize is the API guard. It returns nil when p satisfies req, an
// *UnauthorizedError when access is denied, or the evaluator error when
// the check itself is malformed.
func (e *Enforcer) Authorize(ctx context.Context, p *Principal, req Requirement) error {
	return e.enforce(ctx, AdapterAPI, "", p, req)
}

// AuthorizeRequest runs the API guard for the principal carried by r.
func (e *Enforcer) AuthorizeRequest(r *http.Request, req Requirement) error {
	return e.enforce(r.Context(), AdapterAPI, r.URL.Path, PrincipalFromContext(r.Context()), req)
}

// Gate returns a UI gate bound to p.
func (e *Enforcer) Gate(ctx context.Context, p *Principal) *Gate {
	return &Gate{ctx: ctx, enforcer: e, principal: p}
}

func (e *Enforcer) enforce(ctx context.Context, adapter, resource string, p *Principal, req Requirement) error {
	return e.enforceAny(ctx, adapter, resource, p, req)
}

// enforceAny lets the request through when any requirement is satisfied.
// The last denial is returned otherwise; a malformed requirement wins over
// a plain denial.
func (e *Enforcer) enforceAny(ctx context.Context, adapter, resource string, p *Principal, reqs ...Requirement) error {
	if len(reqs) == 0 {
		reqs = []Requirement{{}}
	}
	var err error
	var req Requirement
	for _, candidate := range reqs {
		req = candidate
		err = Authorize(e.evaluator, p, candidate)
		if err == nil || outcomeOf(err) == OutcomeError {
			break
		}
	}
	d := Decision{
		Adapter:     adapter,
		Principal:   p,
		Requirement: req,
		Outcome:     outcomeOf(err),
		Resource:    resource,
		At:          e.now(),
	}
	if d.Outcome == OutcomeError {
		e.logger.Error("rbac evaluate", slog.String("adapter", adapter), slog.String("requirement", req.String()), slog.Any("error", err))
	}
	if e.observer != nil {
		e.observer.ObserveDecision(ctx, d)
	}
	return err
}

// Authorize evaluates req for p without side effects.
func Authorize(e *Evaluator, p *Principal, req Requirement) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if p == nil {
		if req.AllowAnonymous {
			return nil
		}
		return &UnauthorizedError{Requirement: req}
	}
	allowed, err := req.Evaluate(e, p.Role)
	if err != nil {
		return err
	}
	if !allowed {
		principal := *p
		return &UnauthorizedError{Principal: &principal, Requirement: req}
	}
	return nil
}

func outcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeAllowed
	}
	if ue, ok := err.(*UnauthorizedError); ok {
		if ue.Authenticated() {
			return OutcomeForbidden
		}
		return OutcomeUnauthenticated
	}
	return OutcomeError
}
