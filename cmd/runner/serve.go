package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/desktop-automation/cmd/runner/handlers"
	"github.com/hairizuan-noorazman/desktop-automation/database"
)

var serveConfigFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control API server",
	Long:  `Serves the HTTP control API for managing scenarios and starting, observing and stopping batch runs.`,
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(serveConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.log.Info(ctx, "starting control server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	if err := database.Migrate(a.db); err != nil {
		return err
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	scenarioHandler := handlers.NewScenarioHandler(a.store, a.blobs, a.log)
	batchHandler := handlers.NewBatchHandler(a.runner, a.stop, a.log)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/scenarios", scenarioHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/scenarios", scenarioHandler.List).Methods("GET")
	apiRouter.HandleFunc("/scenarios/{id}", scenarioHandler.GetByID).Methods("GET")
	apiRouter.HandleFunc("/scenarios/{id}", scenarioHandler.Update).Methods("PUT")
	apiRouter.HandleFunc("/scenarios/{id}", scenarioHandler.Delete).Methods("DELETE")
	apiRouter.HandleFunc("/scenarios/{id}/hint-images", scenarioHandler.UploadHintImage).Methods("POST")

	apiRouter.HandleFunc("/batches", batchHandler.Start).Methods("POST")
	apiRouter.HandleFunc("/batches/current", batchHandler.Current).Methods("GET")
	apiRouter.HandleFunc("/batches/current/stop", batchHandler.Stop).Methods("POST")
	apiRouter.HandleFunc("/batches/current/result", batchHandler.Result).Methods("GET")

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		a.log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info(ctx, "shutting down server", nil)

	// Ask any running batch to stop before cutting connections.
	a.stop.RequestStop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info(ctx, "server stopped", nil)
	return nil
}
