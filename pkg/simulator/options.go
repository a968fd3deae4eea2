package simulator

import (
	"go.uber.org/zap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/audit"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/metrics"
)

type Option func(*MarketSimulator)

func WithLogger(logger *zap.Logger) Option {
	return func(s *MarketSimulator) {
		s.logger = logger
	}
}

func WithAudit(log audit.Log) Option {
	return func(s *MarketSimulator) {
		s.auditLog = log
	}
}

func WithMetrics(met *metrics.Metrics) Option {
	return func(s *MarketSimulator) {
		s.met = met
	}
}

// WithInstruments restricts the tradable universe. Submitting an order for
// anything outside it fails with ErrUnknownInstrument.
func WithInstruments(instruments ...string) Option {
	return func(s *MarketSimulator) {
		s.instruments = make(map[string]struct{}, len(instruments))
		for _, instrument := range instruments {
			s.instruments[instrument] = struct{}{}
		}
	}
}
