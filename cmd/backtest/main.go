package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/internal/campaign"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/internal/config"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/internal/dbg"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/audit"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/metrics"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/timemachine"
)

func main() {
	configPath := flag.String("config", "backtest.yaml", "path to run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := dbg.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		panic(err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := market.NewDuckDBReader(cfg.Data.DuckDBPath)
	if err := reader.Connect(); err != nil {
		logger.Fatal("error opening price database", zap.Error(err))
	}
	defer reader.Close()

	auditLogs := audit.Tee{audit.NewZapLog(logger)}
	if cfg.Audit.SQLitePath != "" {
		sqliteLog, err := audit.NewSQLiteLog(cfg.Audit.SQLitePath, logger)
		if err != nil {
			logger.Fatal("error opening audit database", zap.Error(err))
		}
		defer func(sqliteLog *audit.SQLiteLog) {
			_ = sqliteLog.Close()
		}(sqliteLog)
		auditLogs = append(auditLogs, sqliteLog)
	}

	var met *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		registry := prometheus.NewRegistry()
		met = metrics.New(registry)
		metrics.StartServer(cfg.Metrics.Addr, registry)
	}

	start, end := cfg.Window()
	calendar := timemachine.NewWeekdayCalendar(cfg.HolidayDates()...)

	run := campaign.Run{
		Name:        "backtest",
		Start:       start,
		End:         end,
		InitialCash: cfg.Run.InitialCash,
		Fill:        cfg.FillConfig(),
		Instruments: cfg.Run.Instruments,
		Targets:     cfg.Run.Targets,
		Lenient:     cfg.Run.Lenient,
		Audit:       auditLogs,
		Metrics:     met,
	}

	result, err := campaign.ExecuteRun(ctx, reader, calendar, run, logger)
	if err != nil {
		logger.Fatal("error during simulation", zap.Error(err))
	}
	result.Report.Print(logger)
}
