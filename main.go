package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmxbot/pmxbot-sub000/internal/adapters/irc"
	"github.com/pmxbot/pmxbot-sub000/internal/adapters/slack"
	"github.com/pmxbot/pmxbot-sub000/internal/adapters/storage"
	"github.com/pmxbot/pmxbot-sub000/internal/adapters/telegram"
	"github.com/pmxbot/pmxbot-sub000/internal/config"
	"github.com/pmxbot/pmxbot-sub000/internal/core/domain"
	"github.com/pmxbot/pmxbot-sub000/internal/core/port"
	"github.com/pmxbot/pmxbot-sub000/internal/core/service"
	"github.com/pmxbot/pmxbot-sub000/internal/plugins"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Info().Msg("starting pmxbot...")

	log.Info().Msg("reading config file...")
	cfg, v, err := config.Load(os.Args[1:]...)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}

	zerolog.SetGlobalLevel(cfg.Bot.Level())
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transport, err := newTransport(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed initializing transport")
	}

	store, err := storage.Open(ctx, cfg.Bot.Database)
	if err != nil {
		log.Error().Err(err).Str("database", cfg.Bot.Database).Msg("failed opening log store")
	}

	registry := domain.NewRegistry()
	loaded := plugins.Builtin().LoadAll(registry, plugins.Deps{Config: v, Store: store, Shutdown: cancel},
		cfg.Bot.Plugins)
	log.Info().Strs("plugins", loaded).Int("handlers", registry.Len()).Msg("plugins loaded")

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	b := service.NewBot(registry, transport,
		service.WithDispatcherOptions(service.WithMetrics(service.NewMetrics(metricsRegistry))))
	if store != nil {
		b.AddFinalizer(store.Close)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(ctx)
	})

	if cfg.Metrics.Listen != "" {
		server := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			log.Info().Str("listen", cfg.Metrics.Listen).Msg("serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}

	log.Info().Msg("bot stopped")
}

func newTransport(cfg *config.Config) (port.Transport, error) {
	switch cfg.Bot.Transport {
	case "irc":
		return irc.New(irc.Config{
			Server:       cfg.IRC.Server,
			Port:         cfg.IRC.Port,
			TLS:          cfg.IRC.TLS,
			Password:     cfg.IRC.Password,
			Nickname:     cfg.Bot.Nickname,
			Channels:     cfg.Bot.Channels,
			MessageRate:  cfg.IRC.MessageRate,
			MessageBurst: cfg.IRC.MessageBurst,
		}), nil
	case "slack":
		return slack.New(cfg.Slack.Token), nil
	case "telegram":
		t, err := telegram.New(cfg.Telegram.BotToken)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	return nil, fmt.Errorf("unknown transport %q", cfg.Bot.Transport)
}
