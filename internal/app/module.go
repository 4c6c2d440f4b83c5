// Package app wires the faq-search components into an fx application.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"go.uber.org/fx"

	"github.com/xiy/faq-search/internal/config"
	"github.com/xiy/faq-search/internal/embeddings"
	"github.com/xiy/faq-search/internal/faq"
	"github.com/xiy/faq-search/internal/rank"
	"github.com/xiy/faq-search/internal/store"
)

// Module provides the logger, store, similarity provider, ranker and search
// service for a supplied config.Config.
var Module = fx.Module("faq-search",
	fx.Provide(
		NewLogger,
		NewStore,
		NewProvider,
		NewRanker,
		NewService,
	),
)

// New builds an app around cfg. Extra options usually populate targets.
func New(cfg config.Config, opts ...fx.Option) *fx.App {
	base := []fx.Option{
		Module,
		fx.Supply(cfg),
		fx.NopLogger,
	}
	return fx.New(append(base, opts...)...)
}

// LogOutput provides a named logger destination; without one NewLogger writes
// to stderr.
func LogOutput(w io.Writer) fx.Option {
	return fx.Provide(fx.Annotate(func() io.Writer { return w }, fx.ResultTags(`name:"logOutput"`)))
}

// LoggerParams carries the logger destination.
type LoggerParams struct {
	fx.In

	Config config.Config
	Output io.Writer `name:"logOutput" optional:"true"`
}

// NewLogger builds the process logger from config.
func NewLogger(p LoggerParams) *log.Logger {
	out := p.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{ReportCaller: false, Prefix: p.Config.AppName})
	SetLogLevel(logger, p.Config.LogLevel)
	return logger
}

// SetLogLevel maps a config level name onto the logger.
func SetLogLevel(logger *log.Logger, level string) {
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

// NewStore opens the SQLite database and closes it when the app stops.
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *log.Logger) (*store.SQLiteStore, error) {
	st, err := store.OpenSQLite(context.Background(), config.ExpandPath(cfg.DBPath), logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return st.Close()
		},
	})
	return st, nil
}

// NewProvider constructs the configured similarity provider.
func NewProvider(cfg config.Config, logger *log.Logger) (embeddings.Provider, error) {
	pc := cfg.Provider
	switch pc.Kind {
	case config.ProviderHash, "":
		e := embeddings.NewHashEmbedder(pc.Dimensions)
		logger.Debug("using hash embedder", "dimensions", pc.Dimensions)
		return embeddings.NewVectorProvider(e, pc.CacheSize), nil
	case config.ProviderOpenAI:
		key := pc.APIKey()
		if key == "" && pc.BaseURL == "" {
			return nil, fmt.Errorf("provider openai: env %s is empty and no base_url is set", pc.APIKeyEnv)
		}
		e := embeddings.NewOpenAIEmbedder(embeddings.OpenAIConfig{
			APIKey:     key,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			Dimensions: pc.Dimensions,
			User:       pc.User,
		})
		logger.Debug("using openai embedder", "model", pc.Model, "base_url", pc.BaseURL)
		return embeddings.NewVectorProvider(e, pc.CacheSize), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

// NewRanker builds the ranker with the configured scheduling options.
func NewRanker(provider embeddings.Provider, cfg config.Config, logger *log.Logger) *rank.Ranker {
	return rank.NewRanker(provider, rank.Options{
		Concurrency: cfg.Ranking.Concurrency,
		Timeout:     cfg.Ranking.ProviderTimeout(),
	}, logger)
}

// NewService builds the search service on top of the SQLite store.
func NewService(st *store.SQLiteStore, ranker *rank.Ranker, cfg config.Config, logger *log.Logger) *faq.Service {
	return faq.NewService(st, ranker, st, cfg, logger)
}
