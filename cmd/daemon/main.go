// Command daemon is the Rift Architect companion process: it watches
// for a local client attachment (C1), schedules calls against the
// external match-data API (C2), drives the phase state machine and
// advisor runtime (C3/C4), evaluates the tactical trigger engine
// (C5), and serves the overlay transport (C8) an orchestrator (C6)
// wires all of it onto.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/willckim/rift-architect/internal/advisor"
	"github.com/willckim/rift-architect/internal/config"
	"github.com/willckim/rift-architect/internal/logging"
	"github.com/willckim/rift-architect/internal/orchestrator"
	"github.com/willckim/rift-architect/internal/overlay"
	"github.com/willckim/rift-architect/internal/phase"
	"github.com/willckim/rift-architect/internal/scheduler"
	"github.com/willckim/rift-architect/internal/session"
	"github.com/willckim/rift-architect/internal/trigger"
	"github.com/willckim/rift-architect/internal/vault"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Load(zap.NewNop())
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	store, err := vault.Open(cfg.VaultDSN, cfg.VaultPassphrase)
	if err != nil {
		logger.Fatal("daemon: opening vault", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	riotKey, err := store.Get(ctx, "RIOT_API_KEY", "riot_api_key")
	if err != nil && !errors.Is(err, vault.ErrNotFound) {
		logger.Warn("daemon: vault lookup for riot api key failed", zap.Error(err))
	}
	if riotKey == "" {
		riotKey = cfg.RiotAPIKey
	}

	sched := scheduler.New(scheduler.Config{
		Spacing:     cfg.SchedulerSpace,
		InitialRate: "20:1,100:120",
		Logger:      logger,
	})
	defer sched.Close()
	if riotKey != "" {
		sched.ReloadKey(scheduler.Credential{Region: cfg.RiotRegion, Secret: riotKey})
	}

	mgr := session.NewManager(session.NewProcessProbe(), logger)

	hub := overlay.NewHub(logger)

	// invokeAndPublish closes over runtime, assigned a few lines below;
	// the advisors built from it only call invoke after OnActivate has
	// returned, by which point runtime is already non-nil.
	var runtime *advisor.Runtime
	invokeAndPublish := func(kind advisor.Kind) func(ctx context.Context, contextText string) {
		return func(ctx context.Context, contextText string) {
			result, ok := runtime.InvokeAdvisor(ctx, kind, contextText)
			if !ok {
				return
			}
			if result.Err != "" {
				logger.Warn("daemon: advisor invocation failed",
					zap.String("advisor", string(kind)), zap.String("error", result.Err))
				return
			}
			if err := hub.Send("advice", result.Text); err != nil {
				logger.Debug("daemon: overlay send failed", zap.Error(err))
			}
		}
	}

	rest := &restProxy{mgr: mgr}
	advisors := map[advisor.Kind]advisor.Advisor{
		advisor.Draft: advisor.NewDraftAdvisor(rest, invokeAndPublish(advisor.Draft)),
		advisor.Live:  advisor.NewLiveAdvisor(invokeAndPublish(advisor.Live)),
		advisor.Post:  advisor.NewPostAdvisor(rest, invokeAndPublish(advisor.Post)),
	}

	enableLookup := func(kind advisor.Kind) bool {
		return store.AdvisorEnabled(context.Background(), string(kind))
	}

	runtime = advisor.NewRuntime(logger, unconfiguredLLM{}, advisors, enableLookup)

	ph := phase.New(logger)
	triggerEngine := trigger.NewEngine(trigger.NewState(), nil)

	orch := orchestrator.New(ctx, logger, ph, runtime, triggerEngine, sched, hub)
	go orchestrator.RunAttached(ctx, mgr, orch)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: overlay.Routes(hub, orch),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("daemon: listening", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("daemon: http server", zap.Error(err))
	}
}

// restProxy adapts session.Manager's capability-handle accessor into
// the two narrow interfaces the draft/post advisors depend on,
// re-resolving the handle on every call instead of binding it once,
// so it always reaches whatever client is currently attached.
type restProxy struct {
	mgr *session.Manager
}

func (p *restProxy) ChampSelectSessionState(ctx context.Context) (session.ChampSelectSession, error) {
	rest := p.mgr.RESTCapability()
	if rest == nil {
		return session.ChampSelectSession{}, errNoClientAttached
	}
	return rest.ChampSelectSessionState(ctx)
}

func (p *restProxy) EndOfGameStats(ctx context.Context) ([]byte, error) {
	rest := p.mgr.RESTCapability()
	if rest == nil {
		return nil, errNoClientAttached
	}
	return rest.EndOfGameStats(ctx)
}

var errNoClientAttached = errors.New("daemon: no client attached")

// unconfiguredLLM is the seam a production vendor SDK plugs into.
// Wiring a real provider is out of scope for this daemon; this keeps
// the advisor runtime's tool loop well-defined in its absence instead
// of leaving it nil.
type unconfiguredLLM struct{}

func (unconfiguredLLM) Complete(ctx context.Context, req advisor.CompletionRequest) (advisor.CompletionResult, error) {
	return advisor.CompletionResult{}, errors.New("daemon: no LLM backend configured")
}
