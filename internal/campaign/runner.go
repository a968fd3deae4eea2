// Package campaign drives backtest runs: the per-run day loop and a
// parallel executor for batches of independent runs. Runs share only the
// read-only historical store; each gets its own clock and ledger.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/audit"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/broker"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/metrics"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/planner"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/simulator"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/timemachine"
)

// Run describes one independent backtest.
type Run struct {
	Name        string
	Start       time.Time
	End         time.Time
	InitialCash fixed.Point
	Fill        simulator.FillConfig
	Instruments []string
	// Targets is the desired position per instrument, rebalanced toward on
	// every trading day. Stand-in for an external decision engine.
	Targets map[string]fixed.Point
	Lenient bool
	Audit   audit.Log
	Metrics *metrics.Metrics
}

type Result struct {
	Name   string
	Report simulator.Report
}

// ExecuteRun performs the canonical day loop for one run: plan against
// targets, submit, resolve, advance, until the window is exhausted.
func ExecuteRun(ctx context.Context, reader market.BarReader, calendar timemachine.Calendar, run Run, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var clockOpts []timemachine.Option
	if run.Lenient {
		clockOpts = append(clockOpts, timemachine.WithLenientLookahead())
	}
	clock, err := timemachine.New(reader, calendar, run.Start, run.End, clockOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("run %s: %w", run.Name, err)
	}

	auditLog := run.Audit
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	simOpts := []simulator.Option{
		simulator.WithLogger(logger),
		simulator.WithAudit(auditLog),
		simulator.WithInstruments(run.Instruments...),
	}
	if run.Metrics != nil {
		simOpts = append(simOpts, simulator.WithMetrics(run.Metrics))
	}
	sim, err := simulator.New(clock, run.InitialCash, run.Fill, simOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("run %s: %w", run.Name, err)
	}

	// Last order submitted per instrument; used to avoid re-planning a
	// delta that is already working in the book.
	working := make(map[string]broker.OrderID)

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		date := clock.Current()

		orders := planner.Plan(sim.Positions(), run.Targets, planner.Options{
			OrderType: broker.OrderTypeMarket,
			Account:   run.Name,
		})
		for _, order := range orders {
			if id, ok := working[order.Instrument]; ok {
				status, statusErr := sim.OrderStatus(id)
				if statusErr == nil && !broker.IsTerminal(status) {
					continue
				}
			}
			id, submitErr := sim.Submit(order)
			if submitErr != nil {
				return Result{}, fmt.Errorf("run %s: submit %s: %w", run.Name, order.Instrument, submitErr)
			}
			working[order.Instrument] = id
		}

		if _, err := sim.ResolveDay(ctx, date); err != nil {
			return Result{}, fmt.Errorf("run %s: %w", run.Name, err)
		}

		if _, err := clock.Advance(); err != nil {
			if errors.Is(err, timemachine.ErrEndOfHistory) {
				break
			}
			return Result{}, fmt.Errorf("run %s: %w", run.Name, err)
		}
	}

	return Result{Name: run.Name, Report: sim.BuildReport(run.Start, run.End)}, nil
}

// Runner executes batches of runs in parallel.
type Runner struct {
	reader      market.BarReader
	calendar    timemachine.Calendar
	logger      *zap.Logger
	parallelism int
}

func NewRunner(reader market.BarReader, calendar timemachine.Calendar, logger *zap.Logger, parallelism int) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Runner{reader: reader, calendar: calendar, logger: logger, parallelism: parallelism}
}

// Execute runs every configured backtest, bounded by the runner's
// parallelism. Results come back in input order; the first error cancels
// the remaining runs.
func (r *Runner) Execute(ctx context.Context, runs []Run) ([]Result, error) {
	results := make([]Result, len(runs))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.parallelism)
	for i, run := range runs {
		group.Go(func() error {
			result, err := ExecuteRun(ctx, r.reader, r.calendar, run, r.logger.With(zap.String("run", run.Name)))
			if err != nil {
				return err
			}
			results[i] = result
			r.logger.Info("run finished",
				zap.String("run", run.Name),
				zap.String("final_equity", result.Report.FinalEquity.String()))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
