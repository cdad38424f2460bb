// Package runtime implements Runtime: wiring authorization, execution, and
// audit for any usecase (spec §4.7).
package runtime

import (
	"context"
	"errors"

	"feedhub/internal/audit"
	"feedhub/internal/domain/subscription"
	"feedhub/internal/observability/metrics"
	"feedhub/internal/observability/tracing"
)

// ErrUnauthorized is returned by Run when a usecase's Authorize step
// fails.
var ErrUnauthorized = errors.New("unauthorized")

// principalKey is the context key Runtime reads the request's Principal
// from. The auth layer (out of scope per spec §1) is responsible for
// placing one there before Run is called.
type principalKey struct{}

// WithPrincipal returns a context carrying principal, for use by the
// transport layer's auth middleware.
func WithPrincipal(ctx context.Context, p subscription.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the Principal placed by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (subscription.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(subscription.Principal)
	return p, ok
}

// Usecase is the capability contract of spec §6: a named operation that
// authorizes a principal against an input, then runs.
type Usecase[Input any, Output any] interface {
	Name() string
	Authorize(ctx context.Context, principal subscription.Principal, input Input) error
	Run(ctx context.Context, principal subscription.Principal, input Input) (Output, error)
}

// Runtime wires authorization, execution, and audit for any Usecase.
type Runtime struct {
	sink audit.Sink
}

// New builds a Runtime emitting audit records to sink.
func New(sink audit.Sink) *Runtime {
	return &Runtime{sink: sink}
}

// Run implements the §4.7 algorithm: extract the Principal from ctx, emit
// an "operation started" audit record, authorize, run, and emit the
// success/error/unauthorized outcome.
func Run[Input any, Output any](ctx context.Context, rt *Runtime, uc Usecase[Input, Output], input Input) (Output, error) {
	var zero Output

	ctx, span := tracing.GetTracer().Start(ctx, "Runtime.Run:"+uc.Name())
	defer span.End()

	principal, ok := PrincipalFromContext(ctx)
	userID, _ := principal.UserID()
	_ = ok // absence of a principal is an authorization failure, not a panic

	rt.sink.Emit(audit.Record{
		CorrelationID: audit.NewCorrelationID(),
		UserID:        userID,
		Operation:     uc.Name(),
	})

	if err := uc.Authorize(ctx, principal, input); err != nil {
		rt.emit(userID, uc.Name(), audit.ResultUnauthorized)
		return zero, ErrUnauthorized
	}

	output, err := uc.Run(ctx, principal, input)
	if err != nil {
		rt.emit(userID, uc.Name(), audit.ResultError)
		return zero, err
	}

	rt.emit(userID, uc.Name(), audit.ResultSuccess)
	return output, nil
}

func (rt *Runtime) emit(userID, operation string, result audit.Result) {
	rt.sink.Emit(audit.Record{
		CorrelationID: audit.NewCorrelationID(),
		UserID:        userID,
		Operation:     operation,
		Result:        result,
	})
	metrics.RecordRuntimeResult(operation, string(result))
}
