package orchestrator

import (
	"context"

	"github.com/willckim/rift-architect/internal/session"
)

// RunAttached drives a session.Manager's discovery loop and feeds its
// event stream into the orchestrator for the lifetime of ctx. It is
// the glue cmd/daemon/main.go uses to wire C1 to C6; kept as its own
// function (rather than folded into New) so tests can drive an
// Orchestrator directly off a synthetic event channel without a real
// Manager attached.
func RunAttached(ctx context.Context, mgr *session.Manager, o *Orchestrator) {
	go o.Drive(ctx, mgr.Events())
	mgr.Run(ctx)
}
