package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/desktop-automation/database"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
)

var migrateConfigFile string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateConfigFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(migrateConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

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
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := database.Migrate(db); err != nil {
		return err
	}

	log.Info(ctx, "schema migrated", map[string]interface{}{
		"driver": cfg.Database.Driver,
	})
	return nil
}
