// Package main is the entry point for the Quantara protocol core. It
// wires the databases, event bus, module services, HTTP server, and
// background scheduler, then runs until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/config"
	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
	"github.com/Xconmax245/Quantara/internal/modules/capital"
	"github.com/Xconmax245/Quantara/internal/modules/compliance"
	"github.com/Xconmax245/Quantara/internal/modules/contracts"
	"github.com/Xconmax245/Quantara/internal/modules/income"
	"github.com/Xconmax245/Quantara/internal/modules/insurance"
	"github.com/Xconmax245/Quantara/internal/modules/risk"
	"github.com/Xconmax245/Quantara/internal/reliability"
	"github.com/Xconmax245/Quantara/internal/scheduler"
	"github.com/Xconmax245/Quantara/internal/server"
	"github.com/Xconmax245/Quantara/pkg/logger"
	"github.com/Xconmax245/Quantara/pkg/riskmath"
)

// Event log retention for the cache database.
const eventRetentionDays = 30

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Quantara")

	protocolDB := openDatabase(cfg, "protocol", database.ProfileStandard, log)
	defer protocolDB.Close()

	ledgerDB := openDatabase(cfg, "ledger", database.ProfileLedger, log)
	defer ledgerDB.Close()

	cacheDB := openDatabase(cfg, "cache", database.ProfileCache, log)
	defer cacheDB.Close()

	// Event plumbing: bus for live delivery, archive for the event log
	bus := events.NewBus(log)
	eventManager := events.NewManager(bus, log)
	archive := events.NewArchive(cacheDB.Conn(), log)
	archive.Attach(bus)

	// Module services
	riskService := risk.NewService(risk.NewRepository(protocolDB.Conn(), log), eventManager, log)
	incomeService := income.NewService(income.NewRepository(protocolDB.Conn(), log), log)
	contractService := contracts.NewService(contracts.NewRepository(ledgerDB.Conn(), log), eventManager, log)
	capitalService := capital.NewService(capital.NewRepository(protocolDB.Conn(), ledgerDB.Conn(), log), eventManager, log)
	insuranceService := insurance.NewService(insurance.NewRepository(protocolDB.Conn(), ledgerDB.Conn(), log), eventManager, log)
	complianceService := compliance.NewService(compliance.NewRepository(protocolDB.Conn(), log), eventManager, log)

	if err := seedProtocol(cfg, capitalService, insuranceService, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed pools and vaults")
	}

	srv := server.New(server.Config{
		Log:               log,
		Cfg:               cfg,
		ProtocolDB:        protocolDB,
		LedgerDB:          ledgerDB,
		CacheDB:           cacheDB,
		EventBus:          bus,
		EventArchive:      archive,
		RiskService:       riskService,
		IncomeService:     incomeService,
		ContractService:   contractService,
		CapitalService:    capitalService,
		InsuranceService:  insuranceService,
		ComplianceService: complianceService,
	})

	sched := scheduler.New(log)
	registerJobs(sched, cfg, contractService, capitalService, archive,
		[]*database.DB{protocolDB, ledgerDB, cacheDB}, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sched.Start()
	log.Info().Int("port", cfg.Port).Msg("Quantara started")

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Quantara stopped")
}

// openDatabase opens and migrates one named database, exiting on error.
func openDatabase(cfg *config.Config, name string, profile database.DatabaseProfile, log zerolog.Logger) *database.DB {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(name),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to migrate database")
	}
	log.Info().Str("database", name).Str("profile", string(profile)).Msg("Database ready")
	return db
}

// seedProtocol creates the configured pools and vaults. Creation is
// idempotent, so re-running on every startup is safe.
func seedProtocol(cfg *config.Config, capitalService *capital.Service, insuranceService *insurance.Service, log zerolog.Logger) error {
	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}

	for _, pool := range seed.Pools {
		tiers := make([]riskmath.Tier, 0, len(pool.TierFilter))
		for _, raw := range pool.TierFilter {
			tier := riskmath.Tier(raw)
			if !tier.Valid() {
				log.Warn().Str("pool", pool.ID).Str("tier", raw).Msg("Skipping unknown tier in seed filter")
				continue
			}
			tiers = append(tiers, tier)
		}

		if _, err := capitalService.CreatePool(pool.ID, pool.Name, pool.Capital, pool.TargetYield, tiers); err != nil {
			return err
		}
	}

	for _, vault := range seed.Vaults {
		if _, err := insuranceService.CreateVault(vault.ID, vault.PoolID, vault.Reserve, vault.CoverageRatio); err != nil {
			return err
		}
	}

	if len(seed.Pools) > 0 || len(seed.Vaults) > 0 {
		log.Info().
			Int("pools", len(seed.Pools)).
			Int("vaults", len(seed.Vaults)).
			Msg("Seed applied")
	}
	return nil
}

// registerJobs wires the periodic background jobs. The backup job is
// only registered when cloud backup is configured.
func registerJobs(sched *scheduler.Scheduler, cfg *config.Config, contractService *contracts.Service, capitalService *capital.Service, archive *events.Archive, databases []*database.DB, log zerolog.Logger) {
	mustAdd := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
		}
	}

	mustAdd("@daily", scheduler.NewOverdueSweepJob(contractService, log))
	mustAdd("@daily", scheduler.NewYieldSnapshotJob(capitalService, log))
	mustAdd("@daily", scheduler.NewEventPruneJob(archive, eventRetentionDays, log))

	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup storage client")
		}
		backupService := reliability.NewBackupService(databases, cfg.DataDir, s3Client, cfg.Backup.RetentionDays, log)
		mustAdd("@hourly", scheduler.NewBackupJob(backupService, log))
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Cloud backup enabled")
	}
}
