package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestEventNotifier_BuildsEvents(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewEventNotifier(pub)
	ctx := context.Background()

	require.NoError(t, n.NotifyTenderPublished(ctx, "company-1", "Correas transportadoras", "tender-1"))
	require.NoError(t, n.NotifyTenderClosedForEvaluation(ctx, "company-1", "Correas transportadoras", "tender-1"))
	require.NoError(t, n.NotifyTenderAwarded(ctx, "company-1", "Correas transportadoras", "tender-1"))
	require.NoError(t, n.NotifyNewBidReceived(ctx, "company-1", "Correas transportadoras", "tender-1", "Andes SpA", "supplier-1"))

	require.Len(t, pub.events, 4)
	assert.Equal(t, TenderPublished, pub.events[0].Kind)
	assert.Equal(t, TenderClosedForEvaluation, pub.events[1].Kind)
	assert.Equal(t, TenderAwarded, pub.events[2].Kind)

	bid := pub.events[3]
	assert.Equal(t, BidReceived, bid.Kind)
	assert.Equal(t, "company-1", bid.CompanyID)
	assert.Equal(t, "tender-1", bid.TenderID)
	assert.Equal(t, "Correas transportadoras", bid.TenderTitle)
	assert.Equal(t, "Andes SpA", bid.SupplierName)
	assert.Equal(t, "supplier-1", bid.SupplierID)
	assert.NotEmpty(t, bid.ID)
	assert.NotEqual(t, pub.events[0].ID, bid.ID)
}

func TestEventNotifier_WrapsDeliveryError(t *testing.T) {
	cause := errors.New("broker down")
	n := NewEventNotifier(&recordingPublisher{err: cause})

	err := n.NotifyTenderAwarded(context.Background(), "c", "t", "id")

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TenderAwarded, de.Kind)
	assert.ErrorIs(t, err, cause)
}

type fakeConn struct {
	subject string
	data    []byte
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.subject = subj
	c.data = data
	return nil
}

func TestNATSPublisher_SubjectAndPayload(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "licitaciones")

	event := Event{ID: "e1", Kind: TenderAwarded, CompanyID: "company-1", TenderID: "tender-1"}
	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "licitaciones.tender.awarded.company-1", conn.subject)
	var got Event
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.TenderID, got.TenderID)
}

func TestRedisPublisher_PublishesToCompanyChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisPublisher(client, "licitaciones")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, p.Channel("company-1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := Event{ID: "e1", Kind: BidReceived, CompanyID: "company-1", TenderID: "tender-1", SupplierName: "Andes SpA"}
	require.NoError(t, p.Publish(ctx, event))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "licitaciones:company-1", msg.Channel)
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, BidReceived, got.Kind)
		assert.Equal(t, "Andes SpA", got.SupplierName)
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zap.NewNop())
	assert.NoError(t, p.Publish(context.Background(), Event{Kind: TenderPublished}))
}
