package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/vaultsync/internal/adapters/repository"
	"github.com/okian/vaultsync/internal/adapters/upstream"
	"github.com/okian/vaultsync/internal/adapters/upstream/blizzard"
	"github.com/okian/vaultsync/internal/adapters/upstream/raiderio"
	"github.com/okian/vaultsync/internal/adapters/upstream/warcraftlogs"
	service "github.com/okian/vaultsync/internal/app"
	"github.com/okian/vaultsync/internal/config"
	"github.com/okian/vaultsync/internal/domain/encounter"
	"github.com/okian/vaultsync/internal/domain/types"
	"github.com/okian/vaultsync/internal/domain/vault"
	"github.com/okian/vaultsync/pkg/logger"
	"github.com/okian/vaultsync/pkg/metrics"
)

const (
	shutdownTimeout           = 30 * time.Second
	retainWeeks               = 12
	nanosecondsPerMillisecond = 1e6
)

var errNoCharacters = errors.New("no characters configured")

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	code := 0
	if err := run(ctx, cfg, loggerInstance, os.Stdout); err != nil {
		loggerInstance.Error(ctx, "sync run failed", logger.Error(err))
		code = 1
	}
	if err := logger.Sync(); err != nil {
		os.Stderr.WriteString("failed to flush logs: " + err.Error() + "\n")
	}
	os.Exit(code)
}

// run syncs the configured roster once and writes the batch report to out.
func run(ctx context.Context, cfg *config.Config, log logger.Logger, out io.Writer) error {
	keys, err := cfg.RosterKeys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return errNoCharacters
	}

	svc := buildService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	batch, batchErr := svc.SyncBatch(ctx, keys)

	// Persist even after an interrupted batch; ctx may already be cancelled.
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}

	updateSystemMetrics()
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn(ctx, "failed to write metrics textfile", logger.String("path", cfg.MetricsTextfile), logger.Error(err))
		}
	}

	if err := writeReport(out, batch); err != nil {
		return err
	}
	return batchErr
}

// buildService wires the upstream clients named in cfg into a Service. A
// source whose credentials are missing is left unset and reported disabled.
func buildService(cfg *config.Config, log logger.Logger) *service.Service {
	httpOpts := []upstream.Option{
		upstream.WithRetryMax(cfg.RetryMax),
		upstream.WithRetryWait(cfg.RetryWaitMin, cfg.RetryWaitMax),
		upstream.WithTimeout(cfg.HTTPTimeout),
		upstream.WithCooldown(cfg.CircuitCooldown),
		upstream.WithLogger(log.Named("upstream")),
	}

	opts := []service.Option{
		service.WithLogger(log.Named("sync")),
		service.WithStore(repository.NewMemoryStore(
			repository.WithStateFile(cfg.StateFile),
			repository.WithRetainWeeks(retainWeeks),
		)),
		service.WithDiffer(encounter.NewDiffer(encounter.WithInstance(cfg.RaidInstance))),
		service.WithReconciler(vault.NewReconciler(vault.WithBossCap(cfg.BossCap))),
		service.WithTTLs(service.TTLs{
			Gear:        cfg.Blizzard.GearTTL,
			Encounters:  cfg.Blizzard.EncountersTTL,
			Stats:       cfg.Blizzard.StatsTTL,
			Leaderboard: cfg.RaiderIO.TTL,
			CombatLog:   cfg.WarcraftLogs.TTL,
		}),
	}

	if cfg.Blizzard.Token != "" {
		bz := blizzard.New(
			upstream.NewClient(blizzard.Source, httpOpts...),
			upstream.StaticToken(cfg.Blizzard.Token),
			blizzard.WithBaseURL(cfg.Blizzard.BaseURL),
			blizzard.WithLocale(cfg.Blizzard.Locale),
		)
		opts = append(opts,
			service.WithGearSource(bz),
			service.WithEncounterSource(bz),
			service.WithStatsSource(bz),
			service.WithIconSource(bz),
		)
	} else {
		log.Warn(context.Background(), "blizzard token not set; gear, encounters and stats disabled")
	}

	opts = append(opts, service.WithLeaderboardSource(raiderio.New(
		raiderio.NewHTTPClient(httpOpts...),
		raiderio.WithBaseURL(cfg.RaiderIO.BaseURL),
	)))

	if cfg.WarcraftLogs.Token != "" {
		opts = append(opts, service.WithCombatLogSource(warcraftlogs.New(
			upstream.NewClient(warcraftlogs.Source, httpOpts...),
			upstream.StaticToken(cfg.WarcraftLogs.Token),
			warcraftlogs.WithEndpoint(cfg.WarcraftLogs.Endpoint),
			warcraftlogs.WithZoneID(cfg.WarcraftLogs.ZoneID),
			warcraftlogs.WithReportLimit(cfg.WarcraftLogs.ReportLimit),
		)))
	} else {
		log.Warn(context.Background(), "warcraftlogs token not set; combat log disabled")
	}

	return service.New(opts...)
}

func writeReport(out io.Writer, batch types.BatchReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
