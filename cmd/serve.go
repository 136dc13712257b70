package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"partychat/internal/api"
	"partychat/internal/logging"
	"partychat/internal/service"
	"partychat/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Env, cfg.Log.Level)

	ctx := context.Background()

	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	objects, closeObjects, err := openObjectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeObjects()

	services := service.NewServices(repos, objects, service.Options{
		Room: service.RoomOptions{
			EchoSender: cfg.Chat.EchoSender,
			SendBuffer: cfg.Chat.SendBuffer,
			ReadLimit:  cfg.Chat.ReadLimit,
		},
		UploadMaxBytes:    cfg.Upload.MaxBytes,
		UploadCacheMaxAge: cfg.Upload.CacheMaxAge,
	}, logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api.SetupRoutes(r, services, logger)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	// No write timeout: websocket connections are long-lived.
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Address).
			Str("env", cfg.Env).
			Str("store", cfg.Store.Driver).
			Str("uploads", cfg.Upload.Backend).
			Msg("starting partychat server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	}

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown, so the hub
	// closes them itself.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := services.Hub.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("rooms did not stop in time")
	}

	logger.Info().Msg("server stopped")
	return nil
}
