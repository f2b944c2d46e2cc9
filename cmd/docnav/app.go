package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/dgallion1/docnav/internal/chunker"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/ingest"
	"github.com/dgallion1/docnav/internal/llm"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/navigator"
	"github.com/dgallion1/docnav/internal/oracle"
)

// app is the wiring every command shares.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	ingest  ingest.Options

	llm    llm.HostedClient
	cache  *llm.RedisStore
	engine *navigator.Engine
}

// newApp loads configuration and sets up logging. The oracle is not
// connected until connect is called, so commands that never query work
// without an API key.
func newApp(cfgPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	split := chunker.DefaultConfig()
	split.ChunkSize = cfg.Ingest.SectionTokenLimit
	return &app{
		cfg:     cfg,
		log:     config.NewLogger(cfg.Logging, logOut),
		metrics: metrics.New(),
		ingest: ingest.Options{
			Split:             split,
			PdftotextFallback: cfg.Ingest.PDFFallbackPdftotext,
			MaxBytes:          cfg.Ingest.MaxFetchBytes,
		},
	}, nil
}

// connect builds the LLM client, the optional reply cache, the oracle and
// the navigation engine.
func (a *app) connect(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	client, err := llm.New(llm.Options{
		Provider:          llm.Provider(a.cfg.LLM.Provider),
		APIKey:            a.cfg.LLM.APIKey(),
		Model:             a.cfg.LLM.Model(),
		BaseURL:           a.cfg.LLM.BaseURL,
		MaxTokens:         a.cfg.LLM.MaxTokens,
		Timeout:           a.cfg.LLM.Timeout,
		RequestsPerSecond: a.cfg.LLM.RequestsPerSecond,
		MaxRetries:        a.cfg.LLM.MaxRetries,
		Logger:            a.log,
	})
	if err != nil {
		return err
	}
	a.llm = client

	var completer llm.Client = client
	if a.cfg.Cache.Enabled() {
		store, err := llm.NewRedisStore(ctx, llm.RedisOptions{
			Addr:     a.cfg.Cache.Addr,
			Password: a.cfg.Cache.Password,
			DB:       a.cfg.Cache.DB,
		})
		if err != nil {
			a.log.Warn("reply cache disabled", "addr", a.cfg.Cache.Addr, "error", err)
		} else {
			a.cache = store
			completer = llm.NewCachedClient(client, store, a.cfg.Cache.TTL, client.Model(), a.metrics, a.log).
				OnlyCache(oracle.CacheableReply)
		}
	}

	o := oracle.NewLLMOracle(completer,
		oracle.WithTemperature(a.cfg.LLM.Temperature),
		oracle.WithMaxTokens(a.cfg.LLM.MaxTokens),
		oracle.WithMetrics(a.metrics),
		oracle.WithLogger(a.log),
	)
	a.engine = navigator.New(o, navigator.Options{
		MaxSteps:            a.cfg.Navigation.MaxSteps,
		Timeout:             a.cfg.Navigation.Timeout,
		ContentPreviewChars: a.cfg.Navigation.ContentPreviewChars,
		ChildPreviewChars:   a.cfg.Navigation.ChildPreviewChars,
	}, a.metrics, a.log)
	return nil
}

func (a *app) Close() {
	if a.llm != nil {
		a.llm.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}
