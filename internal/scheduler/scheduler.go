// Package scheduler runs periodic maintenance: run-history retention,
// WAL checkpoints and scheduled backups.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/database"
	"github.com/aristath/rqlab/internal/events"
	"github.com/aristath/rqlab/internal/modules/runs"
	"github.com/aristath/rqlab/internal/reliability"
)

// Scheduler owns the cron runner and its maintenance jobs
type Scheduler struct {
	cron          *cron.Cron
	runRepo       *runs.Repository
	resultsDB     *database.DB
	backupService *reliability.BackupService // nil disables the backup job
	bus           *events.Bus
	retentionDays int
	log           zerolog.Logger
}

// New creates a scheduler with the standard maintenance jobs registered:
// nightly run pruning at 03:00, hourly WAL checkpoint, and a nightly
// backup at 04:00 when backups are configured.
func New(
	runRepo *runs.Repository,
	resultsDB *database.DB,
	backupService *reliability.BackupService,
	bus *events.Bus,
	retentionDays int,
	log zerolog.Logger,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:          cron.New(),
		runRepo:       runRepo,
		resultsDB:     resultsDB,
		backupService: backupService,
		bus:           bus,
		retentionDays: retentionDays,
		log:           log.With().Str("component", "scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc("0 3 * * *", s.pruneRuns); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("0 * * * *", s.checkpointWAL); err != nil {
		return nil, err
	}
	if backupService != nil {
		if _, err := s.cron.AddFunc("0 4 * * *", s.runBackup); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins the cron loop
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("retention_days", s.retentionDays).Msg("Maintenance scheduler started")
}

// Stop halts the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Maintenance scheduler stopped")
}

// pruneRuns removes runs past the retention window.
func (s *Scheduler) pruneRuns() {
	if s.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	removed, err := s.runRepo.PruneOlderThan(cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("Run pruning failed")
		return
	}
	if removed > 0 {
		s.bus.Publish(&events.RunsPrunedData{Removed: removed})
	}
}

// checkpointWAL keeps the results database file current for backups.
func (s *Scheduler) checkpointWAL() {
	if err := s.resultsDB.Checkpoint(); err != nil {
		s.log.Error().Err(err).Msg("WAL checkpoint failed")
	}
}

// runBackup archives and uploads the results database.
func (s *Scheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.backupService.BackupNow(ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled backup failed")
	}
}
