// Package rfctx threads the per-invocation environment through the command
// tree as one immutable value: install roots, the resolution scope, and a
// snapshot of the relevant environment variables. The resolution core never
// reads the process environment itself, which keeps it pure and testable.
package rfctx

import (
	"context"

	"rollfwd.dev/rollfwd/internal/config"
)

type key struct{}

// Invocation is the ambient state of one CLI invocation.
type Invocation struct {
	// Roots are the install roots, highest precedence first.
	Roots []string
	// Scope is the directory resolution runs for (pin and config file
	// location). Defaults to the working directory.
	Scope string
	// Env is the environment snapshot taken at startup.
	Env config.LookupFunc
}

// With attaches inv to ctx.
func With(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, key{}, inv)
}

// From reads the invocation from ctx; nil when none was attached.
func From(ctx context.Context) *Invocation {
	inv, _ := ctx.Value(key{}).(*Invocation)
	return inv
}
