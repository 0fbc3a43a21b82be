package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lexlens/citelink/internal/attributor"
	"github.com/lexlens/citelink/internal/config"
	"github.com/lexlens/citelink/internal/locator"
	"github.com/lexlens/citelink/internal/pipeline"
	"github.com/lexlens/citelink/internal/store"
	"github.com/lexlens/citelink/internal/verify"
	"github.com/lexlens/citelink/pkg/caselookup"
	"github.com/lexlens/citelink/pkg/citetoken"
)

// pipelineEnv bundles everything a command needs to run extractions.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *pipelineEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("store close", zap.Error(err))
		}
	}
}

// initPipeline wires the store, external clients, attributor, and
// reconciler from the loaded config.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("extract"); err != nil {
		return nil, err
	}
	env := &pipelineEnv{}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	env.Store = st

	var tok locator.Tokenizer
	if cfg.Tokenizer.Enabled {
		var topts []citetoken.Option
		if cfg.Tokenizer.BaseURL != "" {
			topts = append(topts, citetoken.WithBaseURL(cfg.Tokenizer.BaseURL))
		}
		tok = pipeline.TokenizerAdapter{Client: citetoken.NewClient(topts...)}
	}

	loc := locator.New(locator.MustDefaultPatterns(), tok)

	var suggest attributor.Suggester
	if cfg.Assist.Enabled && cfg.Assist.Key != "" {
		suggest = attributor.NewAssist(cfg.Assist.Key, cfg.Assist.Model)
	}
	attr := attributor.New(suggest)

	reconciler := newReconciler(env.Store)
	if reconciler == nil {
		zap.L().Info("verification disabled, citations will not be cross-checked")
	}

	env.Pipeline = pipeline.New(cfg, loc, attr, reconciler, env.Store)

	return env, nil
}

// newReconciler builds the verification reconciler from the loaded config,
// or nil when lookup is disabled or unkeyed.
func newReconciler(st store.Store) *verify.Reconciler {
	if !cfg.Lookup.Enabled || cfg.Lookup.Key == "" {
		return nil
	}
	var lopts []caselookup.Option
	if cfg.Lookup.BaseURL != "" {
		lopts = append(lopts, caselookup.WithBaseURL(cfg.Lookup.BaseURL))
	}
	if cfg.Lookup.RatePerSecond > 0 {
		lopts = append(lopts, caselookup.WithRateLimit(cfg.Lookup.RatePerSecond, int(cfg.Lookup.RatePerSecond)+1))
	}
	client := caselookup.NewClient(cfg.Lookup.Key, lopts...)

	var ropts []verify.Option
	if st != nil {
		ropts = append(ropts, verify.WithCache(st))
	}
	if cfg.Lookup.MaxInflight > 0 {
		ropts = append(ropts, verify.WithInflight(cfg.Lookup.MaxInflight))
	}
	return verify.New(client, ropts...)
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Driver {
	case "sqlite":
		st, err = store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, sc.DatabaseURL)
	case "none", "":
		return nil, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", sc.Driver)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "open %s store", sc.Driver)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	return st, nil
}
