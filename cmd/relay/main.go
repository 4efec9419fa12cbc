package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tejasmk/doorbell/internal/config"
	"github.com/tejasmk/doorbell/internal/relay"
)

var rootCmd = &cobra.Command{
	Use:   "doorbell-relay",
	Short: "Doorbell relay server (websocket rooms + visitor directory)",
	RunE:  runRelay,
}

var (
	flagPort     string
	flagDataPath string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagPort, "port", "", "listen port (overrides PORT)")
	flags.StringVar(&flagDataPath, "data-path", "", "directory to persist room history via PebbleDB (overrides DATA_PATH)")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute relay command")
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	// Cancellation context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if flagPort != "" {
		cfg.ServerPort = flagPort
	}
	if flagDataPath != "" {
		cfg.DataPath = flagDataPath
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	registry := relay.NewVisitorRegistry()

	// Optional: open the persistent store and rebuild the directory from it
	var store *relay.Store
	if cfg.DataPath != "" {
		s, err := relay.OpenStore(cfg.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("[relay] open store failed; running in memory only")
		} else {
			store = s
			rooms, err := store.Rooms()
			if err != nil {
				log.Warn().Err(err).Msg("[relay] directory rebuild failed")
			}
			for _, room := range rooms {
				registry.Touch(room)
			}
			if len(rooms) > 0 {
				log.Info().Int("rooms", len(rooms)).Msg("[relay] directory rebuilt from store")
			}
		}
	}

	hub := relay.NewHub(registry, store)
	go hub.Run()

	if store != nil {
		retention := relay.NewRetentionWorker(store, registry, 10*time.Minute, 500)
		go retention.Start()
		defer retention.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           relay.NewRouter(hub, registry, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("[relay] listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[relay] http server error")
		}
	}()

	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("[relay] shutdown error")
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("[relay] store close error")
		}
	}
	log.Info().Msg("[relay] shutdown complete")
	return nil
}
