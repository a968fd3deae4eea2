package simulator

import (
	"time"

	"go.uber.org/zap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

// Report summarizes a finished run from the simulator's own ledger.
type Report struct {
	StartDate     time.Time
	EndDate       time.Time
	InitialEquity fixed.Point
	FinalEquity   fixed.Point
	TotalProfit   fixed.Point
	RealizedPnL   fixed.Point
	Commissions   fixed.Point
	MaxDrawdown   fixed.Point
	SharpeRatio   fixed.Point
	TotalFills    int
	DaysResolved  int
}

// BuildReport computes run statistics. Call after the last resolved day.
func (s *MarketSimulator) BuildReport(start, end time.Time) Report {
	curve := s.EquityCurve()

	final := s.initialCash
	if len(curve) > 0 {
		final = curve[len(curve)-1]
	}

	// Daily returns from the equity curve.
	var returns []fixed.Point
	prev := s.initialCash
	for _, equity := range curve {
		if prev.IsPos() {
			returns = append(returns, equity.Sub(prev).Div(prev))
		}
		prev = equity
	}

	return Report{
		StartDate:     start,
		EndDate:       end,
		InitialEquity: s.initialCash,
		FinalEquity:   final,
		TotalProfit:   final.Sub(s.initialCash),
		RealizedPnL:   s.realizedPnL,
		Commissions:   s.commissions,
		MaxDrawdown:   fixed.MaxDrawdown(curve),
		SharpeRatio:   fixed.SharpeRatio(returns, fixed.Zero),
		TotalFills:    len(s.fills),
		DaysResolved:  len(curve),
	}
}

func (report Report) Print(logger *zap.Logger) {
	logger.Info("run report",
		zap.String("start", report.StartDate.Format(time.DateOnly)),
		zap.String("end", report.EndDate.Format(time.DateOnly)),
		zap.String("initial_equity", report.InitialEquity.String()),
		zap.String("final_equity", report.FinalEquity.String()),
		zap.String("total_profit", report.TotalProfit.String()),
		zap.String("realized_pnl", report.RealizedPnL.String()),
		zap.String("commissions", report.Commissions.String()),
		zap.String("max_drawdown", report.MaxDrawdown.String()),
		zap.String("sharpe_ratio", report.SharpeRatio.String()),
		zap.Int("total_fills", report.TotalFills),
		zap.Int("days_resolved", report.DaysResolved))
}
