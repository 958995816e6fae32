// Package cmd implements the adminctl maintenance commands.
package cmd

import (
	"fmt"
	"os"

	"baburchi-admin/internal/config"
	"baburchi-admin/internal/logger"
	"baburchi-admin/internal/model"
	"baburchi-admin/pkg/database"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Baburchi admin maintenance tool",
	Long: `adminctl runs maintenance tasks against the Baburchi admin database
using the same BABURCHI_* configuration as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is the migrated database a command works with
type env struct {
	cfg    *config.Config
	db     *gorm.DB
	log    *zap.Logger
	closer func()
}

func openEnv() (*env, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &env{
		cfg:   cfg,
		db:    db,
		log:   log,
		closer: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			log.Sync()
		},
	}, nil
}
