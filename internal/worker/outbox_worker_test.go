package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/storefront-checkout-go/common/errors"
	"github.com/kyungseok/storefront-checkout-go/common/logger"
	"github.com/kyungseok/storefront-checkout-go/internal/repository"
)

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*repository.OutboxEvent
}

func (f *fakeOutboxRepo) Insert(ctx context.Context, event *repository.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepo) FindPending(ctx context.Context, limit int) ([]*repository.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []*repository.OutboxEvent
	for _, event := range f.events {
		if event.Status == "PENDING" && len(pending) < limit {
			pending = append(pending, event)
		}
	}
	return pending, nil
}

func (f *fakeOutboxRepo) MarkSent(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, event := range f.events {
		if event.ID == id {
			event.Status = "SENT"
			now := time.Now()
			event.SentAt = &now
		}
	}
	return nil
}

type published struct {
	topic string
	key   string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	failFor  map[string]bool
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[key] {
		return errors.New(errors.ErrCodeGatewayError, "broker unavailable")
	}
	f.messages = append(f.messages, published{topic: topic, key: key})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func pendingEvent(t *testing.T, repo *fakeOutboxRepo, orderID string) *repository.OutboxEvent {
	t.Helper()
	event := &repository.OutboxEvent{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     "order.status_changed.v1",
		Payload:       json.RawMessage(`{"orderId":"` + orderID + `"}`),
		Status:        "PENDING",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, repo.Insert(context.Background(), event))
	return event
}

func TestOutboxWorkerPublishesPending(t *testing.T) {
	repo := &fakeOutboxRepo{}
	publisher := &fakePublisher{}
	pendingEvent(t, repo, "ord-1")
	pendingEvent(t, repo, "ord-2")

	w := NewOutboxWorker(repo, publisher, logger.NewTestLogger(), time.Minute)
	require.NoError(t, w.process(context.Background()))

	// 토픽은 이벤트 타입, 키는 주문 ID
	require.Len(t, publisher.messages, 2)
	assert.Equal(t, "order.status_changed.v1", publisher.messages[0].topic)
	assert.Equal(t, "ord-1", publisher.messages[0].key)
	assert.Equal(t, "ord-2", publisher.messages[1].key)

	for _, event := range repo.events {
		assert.Equal(t, "SENT", event.Status)
	}

	// 재실행해도 발행 완료 건은 다시 발행되지 않는다
	require.NoError(t, w.process(context.Background()))
	assert.Len(t, publisher.messages, 2)
}

func TestOutboxWorkerKeepsFailedEventsPending(t *testing.T) {
	repo := &fakeOutboxRepo{}
	publisher := &fakePublisher{failFor: map[string]bool{"ord-1": true}}
	pendingEvent(t, repo, "ord-1")
	pendingEvent(t, repo, "ord-2")

	w := NewOutboxWorker(repo, publisher, logger.NewTestLogger(), time.Minute)
	require.NoError(t, w.process(context.Background()))

	// 실패한 건은 PENDING으로 남아 다음 주기에 재시도된다
	assert.Equal(t, "PENDING", repo.events[0].Status)
	assert.Equal(t, "SENT", repo.events[1].Status)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "ord-2", publisher.messages[0].key)
}
