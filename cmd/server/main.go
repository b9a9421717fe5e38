package main

import (
	"net/http"
	"os"

	charmlog "github.com/charmbracelet/log"

	"riverdeal/internal/config"
	"riverdeal/internal/eval"
	"riverdeal/internal/gateway"
	"riverdeal/internal/httpapi"
	"riverdeal/internal/orchestrator"
	"riverdeal/internal/poker"
	"riverdeal/internal/policy"
	"riverdeal/internal/replaylog"
	"riverdeal/internal/session"
)

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "riverdeal",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	evaluator := eval.New()
	newEngine := func(players []poker.SeatId) *poker.Engine {
		e := poker.NewEngine(players, cfg.SmallBlind, cfg.BigBlind, cfg.StartingStack, evaluator)
		if cfg.HandStrengthSamples > 0 {
			e.EnableHandStrengthEstimate(cfg.HandStrengthSamples)
		}
		return e
	}
	store := session.NewStore(cfg.SessionTTL, newEngine)

	aiPolicy, err := buildPolicy(cfg, logger)
	if err != nil {
		logger.Fatal("building AI policy", "err", err)
	}

	var journal *replaylog.Journal
	if cfg.ReplayEnabled {
		journal = replaylog.New(cfg.ReplayCapacity)
		if db, err := replaylog.OpenSQLite(cfg.ReplayDBPath); err != nil {
			logger.Warn("replay sqlite store disabled", "err", err)
		} else {
			journal = journal.WithDB(db)
		}
	}

	orch := orchestrator.New(store)
	orch.Policy = aiPolicy
	orch.TurnDelay = cfg.AITurnDelay
	orch.HandEndPause = cfg.HandEndPause
	orch.Seed = func() int64 { return cfg.AISeed }
	orch.Log = logger
	orch.Journal = journal

	gw := gateway.New(orch, store)
	api := httpapi.New(store)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.Handle("/tables/", api)
	mux.Handle("/health", api)

	logger.Info("AI mode", "mode", cfg.AIMode)
	logger.Info("replay journal", "enabled", cfg.ReplayEnabled)
	logger.Info("starting server", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, withCORS(mux)); err != nil {
		logger.Fatal("server exited", "err", err)
	}
}

func buildPolicy(cfg config.Config, logger *charmlog.Logger) (policy.Policy, error) {
	switch cfg.AIMode {
	case config.AIModeRandom:
		return policy.NewUniform(cfg.AISeed), nil
	case config.AIModePassive:
		return passivePolicy{}, nil
	case config.AIModeStrategy:
		strat, err := policy.LoadStrategyTable(cfg.AIStrategyPath, cfg.AISeed)
		if err != nil {
			return nil, err
		}
		if cfg.AIPersonaPath == "" {
			return strat, nil
		}
		registry := policy.NewRegistry()
		if err := registry.LoadFromFile(cfg.AIPersonaPath); err != nil {
			logger.Warn("persona file not loaded, using base strategy", "err", err)
			return strat, nil
		}
		personas := registry.All()
		if len(personas) == 0 {
			return strat, nil
		}
		return policy.NewPersonaPolicy(strat, personas[0].Profile, cfg.AISeed), nil
	default:
		return policy.NewUniform(cfg.AISeed), nil
	}
}

// passivePolicy always checks or calls, useful for deterministic demos.
type passivePolicy struct{}

func (passivePolicy) Decide(obs poker.AIObservation) poker.Action {
	return policy.Fallback(obs)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
