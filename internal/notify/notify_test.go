package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/safar/order-engine/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sampleOrder() *models.Order {
	email := "  Buyer@Example.com "
	return &models.Order{
		OrderNumber:   "2042",
		CustomerPhone: "017 1234 5678",
		CustomerEmail: &email,
		TotalAmount:   decimal.RequireFromString("1080.00"),
		Items: []models.OrderItem{
			{ProductID: 7, Quantity: 2},
			{ProductID: 9, Quantity: 1},
			{ProductID: 7, Quantity: 1},
		},
	}
}

func TestNewPurchaseEventPlain(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	event := NewPurchaseEvent(sampleOrder(), "BDT", false, now)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "2042", event.OrderNumber)
	assert.Equal(t, 4, event.ItemCount)
	assert.Equal(t, []int64{7, 9}, event.ProductIDs)
	assert.Equal(t, "buyer@example.com", event.Email)
	assert.Equal(t, "01712345678", event.Phone)
	assert.False(t, event.Hashed)
	assert.Equal(t, now, event.OccurredAt)
}

func TestNewPurchaseEventHashed(t *testing.T) {
	event := NewPurchaseEvent(sampleOrder(), "BDT", true, time.Now())

	assert.Equal(t, hashValue("buyer@example.com"), event.Email)
	assert.Len(t, event.Phone, 64)
	assert.NotContains(t, event.Phone, "0171")
	assert.True(t, event.Hashed)

	order := sampleOrder()
	order.CustomerEmail = nil
	assert.Empty(t, NewPurchaseEvent(order, "BDT", true, time.Now()).Email)
}

type stubWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *stubWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	writer := &stubWriter{}
	p := &KafkaPublisher{writer: writer}

	event := NewPurchaseEvent(sampleOrder(), "BDT", true, time.Now())
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("2042"), writer.messages[0].Key)

	var decoded PurchaseEvent
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.True(t, event.Total.Equal(decoded.Total))

	writer.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), event))
}

func TestWebhookPublisher(t *testing.T) {
	var got PurchaseEvent
	var auth, idem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		idem = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	p := NewWebhookPublisher(server.URL, "secret", time.Second)
	event := NewPurchaseEvent(sampleOrder(), "BDT", false, time.Now())
	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, event.EventID, idem)
	assert.Equal(t, "2042", got.OrderNumber)
	assert.Equal(t, "BDT", got.Currency)
}

func TestWebhookPublisherRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewWebhookPublisher(server.URL, "", time.Second)
	err := p.Publish(context.Background(), NewPurchaseEvent(sampleOrder(), "BDT", false, time.Now()))
	assert.ErrorContains(t, err, "502")
}

type flakyPublisher struct {
	calls atomic.Int32
	err   error
}

func (p *flakyPublisher) Name() string { return "flaky" }

func (p *flakyPublisher) Publish(context.Context, PurchaseEvent) error {
	p.calls.Add(1)
	return p.err
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	inner := &flakyPublisher{err: errors.New("unreachable")}
	p := WithBreaker(inner, nil)
	event := PurchaseEvent{OrderNumber: "1"}

	for i := 0; i < 3; i++ {
		assert.Error(t, p.Publish(context.Background(), event))
	}
	err := p.Publish(context.Background(), event)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load())
}

type recordingPublisher struct {
	name   string
	err    error
	mu     sync.Mutex
	events []PurchaseEvent
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, event PurchaseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestDispatcherFansOutAndSwallowsFailures(t *testing.T) {
	ok := &recordingPublisher{name: "ok"}
	broken := &recordingPublisher{name: "broken", err: errors.New("nope")}

	d := NewDispatcher(DispatcherConfig{HashContact: true, Timeout: time.Second}, nil, ok, broken)
	d.NotifyPurchase(sampleOrder(), "BDT")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))

	require.Len(t, ok.events, 1)
	require.Len(t, broken.events, 1)
	assert.Equal(t, ok.events[0].EventID, broken.events[0].EventID)
	assert.True(t, ok.events[0].Hashed)
}

func TestDispatcherPublishReportsFailure(t *testing.T) {
	ok := &recordingPublisher{name: "ok"}
	broken := &recordingPublisher{name: "broken", err: errors.New("nope")}
	d := NewDispatcher(DispatcherConfig{Timeout: time.Second}, nil, ok, broken)

	event := NewPurchaseEvent(sampleOrder(), "BDT", false, time.Now())
	err := d.publish(event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to broken")
	assert.ErrorIs(t, err, broken.err)
	assert.Len(t, ok.events, 1, "a failing publisher must not stop the others")

	healthy := NewDispatcher(DispatcherConfig{Timeout: time.Second}, nil, &recordingPublisher{name: "ok"})
	assert.NoError(t, healthy.publish(event))
}

func TestDispatcherLogsFailedDeliveryOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	broken := &recordingPublisher{name: "broken", err: errors.New("nope")}
	alsoBroken := &recordingPublisher{name: "also-broken", err: errors.New("nope")}

	d := NewDispatcher(DispatcherConfig{Timeout: time.Second}, zap.New(core), broken, alsoBroken)
	d.NotifyPurchase(sampleOrder(), "BDT")
	require.NoError(t, d.Wait(context.Background()))

	entries := logs.FilterMessage("purchase event not delivered everywhere").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "2042", entries[0].ContextMap()["order_number"])
}

func TestDispatcherWithoutPublishers(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{}, nil)
	d.NotifyPurchase(sampleOrder(), "BDT")
	assert.NoError(t, d.Wait(context.Background()))
}
