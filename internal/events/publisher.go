package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/boiler-scraper/internal/database"
	"github.com/maltedev/boiler-scraper/internal/models"
)

type EventType string

const (
	EventTypeBoilerCreated EventType = "BOILER_CREATED"
	EventTypeBoilerUpdated EventType = "BOILER_UPDATED"
	EventTypeRunFinished   EventType = "SCRAPE_RUN_FINISHED"

	aggregateBoiler = "boiler"
	aggregateRun    = "scrape_run"
	eventSource     = "scraper"
)

// BoilerChangedPayload is the body of BOILER_CREATED and BOILER_UPDATED.
type BoilerChangedPayload struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Timestamp     time.Time         `json:"timestamp"`
	Name          string            `json:"name"`
	Price         string            `json:"price"`
	ProductURL    string            `json:"product_url"`
	Country       string            `json:"country,omitempty"`
	Documentation string            `json:"documentation,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Images        []string          `json:"images,omitempty"`
	Source        string            `json:"source"`
}

func NewBoilerChangedPayload(eventType EventType, b *models.Boiler) *BoilerChangedPayload {
	attrs := make(map[string]string, len(b.Attributes))
	for k, v := range b.Attributes {
		attrs[string(k)] = v
	}
	return &BoilerChangedPayload{
		EventID:       uuid.New().String(),
		EventType:     string(eventType),
		Timestamp:     time.Now(),
		Name:          b.Name,
		Price:         b.Price,
		ProductURL:    b.ProductURL,
		Country:       b.Country,
		Documentation: b.Documentation,
		Attributes:    attrs,
		Images:        b.ImageList(),
		Source:        eventSource,
	}
}

// RunFinishedPayload summarises a finished crawl.
type RunFinishedPayload struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id"`
	Status    models.RunStatus `json:"status"`
	Pages     int              `json:"pages"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Errors    int              `json:"errors"`
	Source    string           `json:"source"`
}

// OutboxWriter stores an event inside a caller's transaction.
type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// Transactor runs fn in a transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(pgx.Tx) error) error
}

// Publisher turns catalog changes into outbox rows for the relay.
type Publisher struct {
	outbox OutboxWriter
	stream string
	logger *slog.Logger
}

func NewPublisher(outbox OutboxWriter, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = database.DefaultStream
	}
	return &Publisher{
		outbox: outbox,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

var _ database.ChangeRecorder = (*Publisher)(nil)

// RecordWithTx writes the change event for b in the same transaction as the
// boiler row itself.
func (p *Publisher) RecordWithTx(ctx context.Context, tx pgx.Tx, kind database.ChangeKind, b *models.Boiler) error {
	var eventType EventType
	switch kind {
	case database.ChangeCreated:
		eventType = EventTypeBoilerCreated
	case database.ChangeUpdated:
		eventType = EventTypeBoilerUpdated
	default:
		return fmt.Errorf("unknown change kind %q", kind)
	}

	payload := NewBoilerChangedPayload(eventType, b)
	if err := p.insert(ctx, tx, aggregateBoiler, b.Name, eventType, payload); err != nil {
		return err
	}

	p.logger.Debug("change recorded", "type", eventType, "name", b.Name, "event_id", payload.EventID)
	return nil
}

// PublishRunFinished writes a SCRAPE_RUN_FINISHED event in its own
// transaction.
func (p *Publisher) PublishRunFinished(ctx context.Context, db Transactor, run *models.Run) error {
	payload := &RunFinishedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeRunFinished),
		Timestamp: time.Now(),
		RunID:     run.ID.String(),
		Status:    run.Status,
		Pages:     run.Pages,
		Created:   run.Created,
		Updated:   run.Updated,
		Errors:    run.Errors,
		Source:    eventSource,
	}

	err := db.Transaction(ctx, func(tx pgx.Tx) error {
		return p.insert(ctx, tx, aggregateRun, payload.RunID, EventTypeRunFinished, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", EventTypeRunFinished,
		"event_id", payload.EventID,
		"run_id", payload.RunID)
	return nil
}

func (p *Publisher) insert(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID string, eventType EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	event := &database.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     string(eventType),
		Payload:       data,
		TargetStream:  p.stream,
	}
	if err := p.outbox.InsertWithTx(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
