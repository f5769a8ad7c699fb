package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher пишет события в журнал. Используется, когда брокер не настроен.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher создает новый экземпляр LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info("notification",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("company_id", event.CompanyID),
		zap.String("tender_id", event.TenderID),
		zap.String("tender_title", event.TenderTitle),
		zap.String("supplier_id", event.SupplierID),
		zap.String("supplier_name", event.SupplierName),
	)
	return nil
}
