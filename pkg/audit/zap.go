package audit

import (
	"time"

	"go.uber.org/zap"
)

// ZapLog writes audit records as structured log lines.
type ZapLog struct {
	logger *zap.Logger
}

func NewZapLog(logger *zap.Logger) *ZapLog {
	return &ZapLog{logger: logger}
}

func (l *ZapLog) OrderTransition(event OrderEvent) {
	l.logger.Info("order transition",
		zap.String("order_id", event.Order.ID.String()),
		zap.String("instrument", event.Order.Instrument),
		zap.String("side", event.Order.Side.String()),
		zap.String("type", event.Order.Type.String()),
		zap.String("quantity", event.Order.Quantity.String()),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.String("reason", event.Reason),
		zap.String("created_at", event.Order.CreatedAt.Format(time.RFC3339)),
		zap.String("date", event.Date.Format(time.DateOnly)))
}

func (l *ZapLog) Fill(event FillEvent) {
	l.logger.Info("fill",
		zap.String("fill_id", event.Fill.ID.String()),
		zap.String("order_id", event.Fill.OrderID.String()),
		zap.String("instrument", event.Fill.Instrument),
		zap.String("side", event.Fill.Side.String()),
		zap.String("quantity", event.Fill.Quantity.String()),
		zap.String("price", event.Fill.Price.String()),
		zap.String("commission", event.Fill.Commission.String()),
		zap.String("date", event.Date.Format(time.DateOnly)))
}

func (l *ZapLog) Snapshot(event SnapshotEvent) {
	l.logger.Info("account snapshot",
		zap.String("cash", event.Account.Cash.String()),
		zap.String("equity", event.Account.Equity.String()),
		zap.Int("open_positions", len(event.Positions)),
		zap.String("date", event.Date.Format(time.DateOnly)))
}
