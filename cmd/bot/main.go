// Package main is the bot-telegram entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GregPesc/bot-telegram/internal/bot"
	"github.com/GregPesc/bot-telegram/internal/config"
	"github.com/GregPesc/bot-telegram/internal/gateway/telegram"
	"github.com/GregPesc/bot-telegram/internal/scheduler"
	"github.com/GregPesc/bot-telegram/internal/session"
	"github.com/GregPesc/bot-telegram/internal/status"
	"github.com/GregPesc/bot-telegram/internal/store"
	"github.com/GregPesc/bot-telegram/internal/templates"
	"github.com/GregPesc/bot-telegram/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	dataFile := flag.String("data-file", "", "Data file path (default: from settings)")
	statusAddr := flag.String("status-addr", "", "Status endpoint address (default: from settings)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings, using defaults")
		cfg = config.Default()
	}
	if *dataFile != "" {
		cfg.DataFile = *dataFile
	}
	if *statusAddr != "" {
		cfg.StatusAddr = *statusAddr
	}

	token, err := cfg.Token()
	if err != nil {
		log.Fatal().Err(err).Msg("No bot token")
	}

	st, err := store.Open(cfg.DataFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DataFile).Msg("Failed to open store")
	}

	catalog, err := templates.Load(cfg.TemplatesPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load reply templates, using defaults")
		catalog = templates.Default()
	}

	gw, err := telegram.New(token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}

	sessions := session.NewManager()
	sched := scheduler.New(st, gw, catalog, time.Duration(cfg.TickSeconds)*time.Second)
	controller := bot.New(st, sessions, gw, catalog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Recreate the data file if something deletes it while we run.
	dataWatcher, err := watcher.New(st.Path(), func() {
		if saveErr := st.Save(); saveErr != nil {
			log.Error().Err(saveErr).Msg("Failed to recreate data file")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create data file watcher")
	} else if err := dataWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start data file watcher")
	} else {
		defer dataWatcher.Stop()
	}

	if cfg.StatusAddr != "" {
		go status.Serve(ctx, cfg.StatusAddr, status.Handler(st, sched, sessions))
	}

	go sched.Run(ctx)

	log.Info().Str("version", Version).Str("dataFile", cfg.DataFile).Msg("Bot started")

	if err := gw.Run(ctx, controller); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Gateway error")
	}
	log.Info().Msg("Shutdown complete")
}
