package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/liutentor/tentor/internal/blobcache"
	"github.com/liutentor/tentor/internal/chat"
	"github.com/liutentor/tentor/internal/config"
	"github.com/liutentor/tentor/internal/db"
	"github.com/liutentor/tentor/internal/exams"
	"github.com/liutentor/tentor/internal/lockin"
	"github.com/liutentor/tentor/internal/logger"
	"github.com/liutentor/tentor/internal/metrics"
	"github.com/liutentor/tentor/internal/pdfdoc"
	"github.com/liutentor/tentor/internal/prefs"
	"github.com/liutentor/tentor/internal/server"
	"github.com/liutentor/tentor/internal/viewer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tentor HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if err := logger.Init(logger.Options{
			Level:      cfg.Logging.Level,
			Pretty:     cfg.Logging.Pretty,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		metrics.Init()

		database, err := db.Open(filepath.Join(cfg.DataDir, "tentor.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		cache, err := buildBlobCache(cfg, database)
		if err != nil {
			return fmt.Errorf("initializing blob cache: %w", err)
		}

		examStore := exams.NewStore(database)
		fetcher := pdfdoc.NewFetcher(cache)
		chatStore := chat.NewStore(database)
		hub := lockin.NewHub()
		lockinMgr := lockin.NewManager(lockin.NewStore(database), hub)

		// Purge stale lock-in history and expire any leftover session on boot.
		if _, err := lockinMgr.Initialize(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("lock-in initialization failed")
		}

		var completer chat.Completer
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			completer = openai.NewClient(key)
		} else {
			log.Warn().Msg("OPENAI_API_KEY not set, chat assistant disabled")
		}
		assistant := chat.NewAssistant(completer, cfg.Chat.Model, cfg.Chat.MaxTokens, cfg.Chat.Temperature, chatStore, examStore)

		srv := server.New(*cfg, server.Deps{
			DB:        database,
			Exams:     examStore,
			Prefs:     prefs.NewStore(database),
			Fetcher:   fetcher,
			Viewer:    viewer.NewManager(examStore, fetcher),
			Lockin:    lockinMgr,
			LockinHub: hub,
			ChatStore: chatStore,
			Assistant: assistant,
		})

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

// buildBlobCache selects the cache backend from config.
func buildBlobCache(cfg *config.Config, database *db.DB) (blobcache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return blobcache.NewRedisCache(cfg.RedisURL)
	default:
		return blobcache.NewSQLiteCache(database), nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
