package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/modules/capital"
	"github.com/Xconmax245/Quantara/internal/modules/contracts"
	"github.com/Xconmax245/Quantara/internal/reliability"
)

// OverdueSweepJob marks repayment schedule entries past their due date
// as late.
type OverdueSweepJob struct {
	contracts *contracts.Service
	log       zerolog.Logger
}

// NewOverdueSweepJob creates the overdue repayment sweep job.
func NewOverdueSweepJob(contractService *contracts.Service, log zerolog.Logger) *OverdueSweepJob {
	return &OverdueSweepJob{
		contracts: contractService,
		log:       log.With().Str("job", "overdue_sweep").Logger(),
	}
}

// Name returns the job name.
func (j *OverdueSweepJob) Name() string { return "overdue_sweep" }

// Run sweeps overdue repayments as of now.
func (j *OverdueSweepJob) Run() error {
	count, err := j.contracts.SweepOverdue(time.Now().UTC())
	if err != nil {
		return err
	}
	if count > 0 {
		j.log.Info().Int("count", count).Msg("Marked overdue repayments late")
	}
	return nil
}

// YieldSnapshotJob refreshes every pool's actual yield from its active
// positions.
type YieldSnapshotJob struct {
	capital *capital.Service
	log     zerolog.Logger
}

// NewYieldSnapshotJob creates the pool yield snapshot job.
func NewYieldSnapshotJob(capitalService *capital.Service, log zerolog.Logger) *YieldSnapshotJob {
	return &YieldSnapshotJob{
		capital: capitalService,
		log:     log.With().Str("job", "yield_snapshot").Logger(),
	}
}

// Name returns the job name.
func (j *YieldSnapshotJob) Name() string { return "yield_snapshot" }

// Run snapshots pool yields as of now.
func (j *YieldSnapshotJob) Run() error {
	return j.capital.SnapshotYields(time.Now().UTC())
}

// EventPruneJob trims the archived event log to a retention window.
type EventPruneJob struct {
	archive       *events.Archive
	retentionDays int
	log           zerolog.Logger
}

// NewEventPruneJob creates the event log prune job.
func NewEventPruneJob(archive *events.Archive, retentionDays int, log zerolog.Logger) *EventPruneJob {
	return &EventPruneJob{
		archive:       archive,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "event_prune").Logger(),
	}
}

// Name returns the job name.
func (j *EventPruneJob) Name() string { return "event_prune" }

// Run deletes archived events older than the retention window.
func (j *EventPruneJob) Run() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	pruned, err := j.archive.Prune(cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.log.Info().Int64("pruned", pruned).Msg("Pruned archived events")
	}
	return nil
}

// BackupJob snapshots the databases into a backup archive.
type BackupJob struct {
	backup *reliability.BackupService
	log    zerolog.Logger
}

// NewBackupJob creates the database backup job.
func NewBackupJob(backupService *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup: backupService,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string { return "backup" }

// Run creates a backup archive. Bounded so a hung upload cannot pile
// up behind the next scheduled run.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	_, err := j.backup.Run(ctx)
	return err
}
