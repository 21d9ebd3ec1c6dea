package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/logger"
	"github.com/woozymasta/geoarea/internal/server"
	"github.com/woozymasta/geoarea/internal/store"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"   env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Store      string `short:"s" long:"store"  env:"STORE_PATH"     description:"Session store directory, overrides config"`
	AreaURL    string `long:"area-service-url" env:"AREA_SERVICE_URL" description:"Remote area service endpoint, overrides config"`
	Port       int    `short:"p" long:"port"   env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", opts.ConfigFile).Msg("Configuration file not found, using defaults")
		cfg = config.Default()
	} else if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Store != "" {
		cfg.StorePath = opts.Store
	}
	if opts.AreaURL != "" {
		cfg.AreaService.URL = opts.AreaURL
	}

	var st server.Store
	if cfg.StorePath != "" {
		db, err := store.Open(cfg.StorePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.StorePath).Msg("Failed to open session store")
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close session store")
			}
		}()
		st = db

		ids, err := db.List()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to list stored sessions")
		}
		log.Info().
			Str("path", cfg.StorePath).
			Int("sessions", len(ids)).
			Msg("Session store opened")
	}

	var remote area.Provider
	if svc := cfg.AreaService; svc.Enabled() {
		remote = area.NewRemote(svc.URL, svc.Scale, svc.Timeout, *svc.Retries)
	}

	srvCtx, err := server.NewServerContext(cfg, st, remote)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	handler := server.RequestLogger(srvCtx.Routes())

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Str("store", cfg.StorePath).
		Bool("remote_area", remote != nil).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Error().Err(err).Msg("Server failed")
	}
}
