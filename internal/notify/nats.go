package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// natsConn - часть *nats.Conn, нужная для публикации.
type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher публикует события в NATS.
// Тема: <prefix>.<kind>.<companyId>, например licitaciones.tender.awarded.<id>.
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// NewNATSPublisher создает новый экземпляр NATSPublisher.
func NewNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// ConnectNATS подключается к NATS и возвращает публикатор с соединением.
func ConnectNATS(url, prefix string) (*NATSPublisher, *nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("licitaciones-service"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSPublisher(conn, prefix), conn, nil
}

func (p *NATSPublisher) Subject(event Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, event.Kind, event.CompanyID)
}

func (p *NATSPublisher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event), data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}
