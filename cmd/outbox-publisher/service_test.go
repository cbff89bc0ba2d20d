package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/commerce-core/pkg/config"
	"github.com/angelmondragon/commerce-core/pkg/db/dbtest"
	"github.com/angelmondragon/commerce-core/pkg/db/models"
	"github.com/angelmondragon/commerce-core/pkg/enums"
	"github.com/angelmondragon/commerce-core/pkg/logger"
	"github.com/angelmondragon/commerce-core/pkg/outbox"
	"github.com/angelmondragon/commerce-core/pkg/outbox/payloads"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			newEvent(t, enums.EventOrderCompleted, enums.AggregateOrder, 1),
			newEvent(t, enums.EventProductTypeSaved, enums.AggregateProductType, 2),
		},
	}
	pub := &fakePublisher{errs: []error{errors.New("transient"), nil}}
	service := newTestService(t, repo, pub, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
	if pub.channels[1] != "commerce.events.product_type" {
		t.Fatalf("unexpected channel %q", pub.channels[1])
	}
}

func TestServiceProcessBatchMarksUndecodableTerminal(t *testing.T) {
	event := newEvent(t, enums.EventOrderPaid, enums.AggregateOrder, 3)
	event.Payload = datatypes.JSON(`not-json`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.terminal); got != 1 {
		t.Fatalf("expected terminal mark, got %d", got)
	}
	if len(pub.channels) != 0 {
		t.Fatalf("undecodable events must not be published")
	}
}

func TestServiceProcessBatchMarksTerminalOnMaxAttempts(t *testing.T) {
	event := newEvent(t, enums.EventOrderCompleted, enums.AggregateOrder, 4)
	event.AttemptCount = 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("transient")}}
	service := newTestService(t, repo, pub, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if got := len(repo.terminal); got != 1 {
		t.Fatalf("expected terminal mark, got %d", got)
	}
	if got := len(repo.failed); got != 0 {
		t.Fatalf("terminal events are not also marked failed, got %d", got)
	}
}

func TestProcessBatchAgainstStore(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	repo := outbox.NewRepository(client.DB())
	emitter := outbox.NewService(repo, logger.Nop())

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, id := range []int64{10, 11} {
			err := emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   id,
				Data:          payloads.OrderPaidEvent{OrderID: id, Number: "n", TotalPaid: "1.00", DatePaid: time.Now().UTC()},
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	pub := &fakePublisher{failWhen: func(body []byte) error {
		if bytes.Contains(body, []byte(`"aggregateId":"11"`)) {
			return errors.New("connection reset")
		}
		return nil
	}}
	service, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, MaxAttempts: 3}},
		Logger:     logger.Nop(),
		DB:         client,
		Publisher:  pub,
		Repository: repo,
	})
	require.NoError(t, err)

	processed, err := service.processBatch(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	first, err := repo.ListForAggregate(ctx, enums.AggregateOrder, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.NotNil(t, first[0].PublishedAt)

	second, err := repo.ListForAggregate(ctx, enums.AggregateOrder, 11)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, second[0].PublishedAt)
	assert.Equal(t, 1, second[0].AttemptCount)
	require.NotNil(t, second[0].LastError)
	assert.Contains(t, *second[0].LastError, "connection reset")

	var published []message
	for _, body := range pub.bodies {
		var msg message
		require.NoError(t, json.Unmarshal(body, &msg))
		published = append(published, msg)
	}
	require.Len(t, published, 2)
	var delivered message
	for _, msg := range published {
		if msg.AggregateID == "10" {
			delivered = msg
		}
	}
	assert.Equal(t, "order_paid", delivered.EventType)
	assert.Equal(t, first[0].ID.String(), delivered.OutboxID)
	assert.Equal(t, first[0].ID.String(), delivered.Envelope.EventID)

	// the failed event is retried on the next pass; the published one is not
	processed, err = service.processBatch(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Len(t, pub.channels, 3)
}

func TestNextBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 200*time.Millisecond, nextBackoff(base, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))
	assert.Equal(t, 200*time.Millisecond, nextBackoff(0, base, maxBackoff))
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: outboxCfg},
		Logger:     logg,
		DB:         &fakeDB{},
		Publisher:  pub,
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func newEvent(tb testing.TB, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, aggregateID int64) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		Payload:       payload,
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

// fakePublisher returns errs in order, then succeeds. failWhen, when set,
// decides per message instead.
type fakePublisher struct {
	errs     []error
	failWhen func(body []byte) error
	channels []string
	bodies   [][]byte
}

func (f *fakePublisher) Ping(context.Context) error {
	return nil
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	f.channels = append(f.channels, channel)
	f.bodies = append(f.bodies, payload)
	if f.failWhen != nil {
		return 1, f.failWhen(payload)
	}
	if len(f.errs) == 0 {
		return 1, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return 1, err
}
