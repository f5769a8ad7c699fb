// Package notify доставляет события тендеров заинтересованным сторонам.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notifier - внешний получатель событий жизненного цикла тендера.
type Notifier interface {
	NotifyTenderPublished(ctx context.Context, companyID, tenderTitle, tenderID string) error
	NotifyTenderClosedForEvaluation(ctx context.Context, companyID, tenderTitle, tenderID string) error
	NotifyTenderAwarded(ctx context.Context, companyID, tenderTitle, tenderID string) error
	NotifyNewBidReceived(ctx context.Context, companyID, tenderTitle, tenderID, supplierName, supplierID string) error
}

type EventKind string // Тип события

const (
	TenderPublished           EventKind = "tender.published"
	TenderClosedForEvaluation EventKind = "tender.closed_for_evaluation"
	TenderAwarded             EventKind = "tender.awarded"
	BidReceived               EventKind = "bid.received"
)

// Event - событие, отправляемое в транспорт.
type Event struct {
	ID           string    `json:"id"`
	Kind         EventKind `json:"kind"`
	CompanyID    string    `json:"companyId"`
	TenderID     string    `json:"tenderId"`
	TenderTitle  string    `json:"tenderTitle"`
	SupplierID   string    `json:"supplierId,omitempty"`
	SupplierName string    `json:"supplierName,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher отправляет событие в конкретный транспорт.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// DeliveryError - транспорт не принял событие.
type DeliveryError struct {
	Kind EventKind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver %s notification: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// EventNotifier реализует Notifier поверх Publisher.
type EventNotifier struct {
	pub Publisher
	now func() time.Time
}

// NewEventNotifier создает новый экземпляр EventNotifier.
func NewEventNotifier(pub Publisher) *EventNotifier {
	return &EventNotifier{pub: pub, now: time.Now}
}

func (n *EventNotifier) NotifyTenderPublished(ctx context.Context, companyID, tenderTitle, tenderID string) error {
	return n.send(ctx, n.tenderEvent(TenderPublished, companyID, tenderTitle, tenderID))
}

func (n *EventNotifier) NotifyTenderClosedForEvaluation(ctx context.Context, companyID, tenderTitle, tenderID string) error {
	return n.send(ctx, n.tenderEvent(TenderClosedForEvaluation, companyID, tenderTitle, tenderID))
}

func (n *EventNotifier) NotifyTenderAwarded(ctx context.Context, companyID, tenderTitle, tenderID string) error {
	return n.send(ctx, n.tenderEvent(TenderAwarded, companyID, tenderTitle, tenderID))
}

func (n *EventNotifier) NotifyNewBidReceived(ctx context.Context, companyID, tenderTitle, tenderID, supplierName, supplierID string) error {
	event := n.tenderEvent(BidReceived, companyID, tenderTitle, tenderID)
	event.SupplierName = supplierName
	event.SupplierID = supplierID
	return n.send(ctx, event)
}

func (n *EventNotifier) tenderEvent(kind EventKind, companyID, tenderTitle, tenderID string) Event {
	return Event{
		ID:          uuid.New().String(),
		Kind:        kind,
		CompanyID:   companyID,
		TenderID:    tenderID,
		TenderTitle: tenderTitle,
		OccurredAt:  n.now().UTC(),
	}
}

func (n *EventNotifier) send(ctx context.Context, event Event) error {
	if err := n.pub.Publish(ctx, event); err != nil {
		return &DeliveryError{Kind: event.Kind, Err: err}
	}
	return nil
}
