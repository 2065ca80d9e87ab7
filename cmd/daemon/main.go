package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/audio"
	"github.com/hushd/hushd/internal/config"
	"github.com/hushd/hushd/internal/coord"
	"github.com/hushd/hushd/internal/domain"
	"github.com/hushd/hushd/internal/engine"
	"github.com/hushd/hushd/internal/focus"
	"github.com/hushd/hushd/internal/media"
	"github.com/hushd/hushd/internal/policy"
	"github.com/hushd/hushd/internal/procid"
	"github.com/hushd/hushd/internal/state"
)

// focusPollInterval is how often the foreground window is sampled. It sits
// well under the default debounce so bursts still coalesce.
const focusPollInterval = 100 * time.Millisecond

// AppOptions assembles the daemon's dependency graph.
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		fx.Annotate(config.New, fx.As(new(domain.Config))),
		newFocusSource,
		newMediaController,
		fx.Annotate(asMediaController, fx.As(new(domain.MediaController))),
		fx.Annotate(asCandidateProvider, fx.As(new(domain.CandidateProvider))),
		newFilter,
		newPolicyEngine,
		newLedger,
		newResolver,
		newCoordServer,
		fx.Annotate(asBroadcaster, fx.As(new(domain.Broadcaster))),
		newEngine,
	),
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		AppOptions,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()

	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates the shared zap logger
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newFocusSource(logger *zap.Logger) domain.ChangeSource {
	return focus.NewPollingSource(logger, focusPollInterval)
}

func newMediaController(logger *zap.Logger) *media.Controller {
	return media.NewController(logger)
}

func asMediaController(c *media.Controller) *media.Controller { return c }
func asCandidateProvider(c *media.Controller) *media.Controller { return c }

func newFilter(logger *zap.Logger, cfg domain.Config) (*audio.Filter, error) {
	return audio.NewFilter(logger, cfg.AudibilityThreshold())
}

func newPolicyEngine(logger *zap.Logger, cfg domain.Config) *policy.Engine {
	return policy.NewEngine(logger, cfg, procid.Self())
}

func newLedger(logger *zap.Logger) *state.Ledger {
	return state.NewLedger(logger, procid.Epoch)
}

func newResolver(logger *zap.Logger, controller domain.MediaController, cfg domain.Config) *media.Resolver {
	return media.NewResolver(logger, controller, cfg)
}

func newCoordServer(logger *zap.Logger, cfg domain.Config) *coord.Server {
	return coord.NewServer(logger, cfg.CoordinationAddr(), cfg.GraceWindow())
}

func asBroadcaster(s *coord.Server) *coord.Server { return s }

func newEngine(
	logger *zap.Logger,
	cfg domain.Config,
	source domain.ChangeSource,
	provider domain.CandidateProvider,
	filter *audio.Filter,
	policyEngine *policy.Engine,
	resolver *media.Resolver,
	controller domain.MediaController,
	ledger *state.Ledger,
	broadcaster domain.Broadcaster,
) *engine.Engine {
	return engine.NewEngine(logger, cfg, source, provider, filter,
		policyEngine, resolver, controller, ledger, broadcaster)
}

// registerHooks wires startup and shutdown. Coordination being unavailable
// is not fatal: local pause/resume keeps working without it.
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, server *coord.Server, eng *engine.Engine, controller *media.Controller) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(ctx); err != nil {
				logger.Warn("Coordination server unavailable, running standalone", zap.Error(err))
			}
			if err := eng.Start(ctx); err != nil {
				return err
			}
			logger.Info("hushd started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := eng.Stop(ctx); err != nil {
				logger.Warn("Engine stop failed", zap.Error(err))
			}
			if err := server.Stop(ctx); err != nil {
				logger.Warn("Coordination server stop failed", zap.Error(err))
			}
			if err := controller.Close(); err != nil {
				logger.Warn("Media controller close failed", zap.Error(err))
			}
			logger.Info("Shutting down")
			return nil
		},
	})
}
