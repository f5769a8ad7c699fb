package services

import (
	"context"

	"github.com/senyabanana/licitaciones-service/internal/notify"

	"go.uber.org/zap"
)

// deliver отправляет уведомление после фиксации изменений.
// Ошибка доставки только пишется в журнал и не возвращается вызывающему.
func deliver(ctx context.Context, logger *zap.Logger, kind notify.EventKind, tenderId string, send func(ctx context.Context) error) {
	if err := send(ctx); err != nil {
		logger.Warn("notification delivery failed",
			zap.String("kind", string(kind)),
			zap.String("tender_id", tenderId),
			zap.Error(err))
	}
}
