// Package di wires the application's dependencies: database, event bus,
// simulator, services and repositories, all constructor-injected.
package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/config"
	"github.com/aristath/rqlab/internal/database"
	"github.com/aristath/rqlab/internal/events"
	"github.com/aristath/rqlab/internal/modules/charts"
	"github.com/aristath/rqlab/internal/modules/runs"
	"github.com/aristath/rqlab/internal/modules/simulation"
	"github.com/aristath/rqlab/internal/reliability"
)

// Container holds all wired dependencies
type Container struct {
	ResultsDB *database.DB
	EventBus  *events.Bus

	Simulator         simulation.Simulator
	SimulationService *simulation.Service
	RunRepo           *runs.Repository
	ChartsService     *charts.Service

	BackupService *reliability.BackupService // nil when backups are not configured
}

// Wire initializes all dependencies in dependency order: database first,
// then the event bus, the simulator, and the services built on them.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileStandard,
		Name:    "results",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize results database: %w", err)
	}
	if err := resultsDB.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate results database: %w", err)
	}
	container.ResultsDB = resultsDB

	container.EventBus = events.NewBus(log)

	simulator, err := simulation.NewChargeBasisSimulator(cfg.ChargeCutoff, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize simulator: %w", err)
	}
	container.Simulator = simulator
	container.SimulationService = simulation.NewService(simulator, container.EventBus, log)

	container.RunRepo = runs.NewRepository(resultsDB.Conn(), log)
	container.ChartsService = charts.NewService(log)

	if cfg.Backup.Enabled() {
		storage, err := reliability.NewStorageClient(
			context.Background(),
			cfg.Backup.Endpoint,
			cfg.Backup.Region,
			cfg.Backup.Bucket,
			cfg.Backup.AccessKey,
			cfg.Backup.SecretKey,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			storage, resultsDB, container.EventBus, cfg.Backup.Retention, log)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backup storage configured")
	}

	return container, nil
}

// Close releases the container's resources.
func (c *Container) Close() {
	if c.ResultsDB != nil {
		_ = c.ResultsDB.Close()
	}
}
