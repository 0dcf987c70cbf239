package main

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/desktop-automation/actuator"
	"github.com/hairizuan-noorazman/desktop-automation/agent"
	"github.com/hairizuan-noorazman/desktop-automation/batch"
	"github.com/hairizuan-noorazman/desktop-automation/database"
	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
	"github.com/hairizuan-noorazman/desktop-automation/oracle"
	"github.com/hairizuan-noorazman/desktop-automation/scenario"
	"github.com/hairizuan-noorazman/desktop-automation/storage"
	"github.com/hairizuan-noorazman/desktop-automation/webhook"
)

// app holds the wired runner stack shared by the run and serve commands.
type app struct {
	cfg    *Config
	log    logger.Logger
	db     *gorm.DB
	store  scenario.Store
	blobs  storage.BlobStorage
	stop   *batch.FlagStop
	runner *batch.Runner
}

// buildApp wires the full stack from configuration.
func buildApp(ctx context.Context, cfg *Config) (*app, error) {
	log := logger.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(database.Config{
		Driver:       cfg.Database.Driver,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	blobs, err := storage.New(storage.Config{
		Type:          cfg.Storage.Type,
		BaseDir:       cfg.Storage.BaseDir,
		Bucket:        cfg.Storage.S3Bucket,
		Region:        cfg.Storage.S3Region,
		PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	visionOracle, err := oracle.NewBedrockOracle(
		cfg.Oracle.BedrockRegion,
		cfg.Oracle.BedrockModel,
		cfg.Oracle.MaxTokens,
		cfg.Oracle.DisplayWidth,
		cfg.Oracle.DisplayHeight,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize oracle: %w", err)
	}

	driver := actuator.NewRemoteActuator(cfg.Driver.BaseURL, cfg.Driver.Timeout)
	matcher := hintimage.NewRemoteMatcher(cfg.Driver.BaseURL, cfg.Driver.Timeout)

	loop := agent.NewLoop(cfg.Agent, visionOracle, driver, matcher, log)
	loop.SetArtifactStorage(blobs)

	store := scenario.NewMySQLStore(db, log)
	stop := batch.NewFlagStop()
	webhookClient := webhook.NewClient(cfg.Webhook.URL, log)
	runner := batch.NewRunner(store, loop, blobs, webhookClient, stop, log)

	log.Info(ctx, "runner stack initialized", map[string]interface{}{
		"database": cfg.Database.Driver,
		"storage":  cfg.Storage.Type,
		"model":    cfg.Oracle.BedrockModel,
		"driver":   cfg.Driver.BaseURL,
	})

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		store:  store,
		blobs:  blobs,
		stop:   stop,
		runner: runner,
	}, nil
}

// close releases the underlying database connection.
func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
