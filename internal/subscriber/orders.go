// Package subscriber consumes checkout events and materializes orders.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/shopcore/cart-service/internal/events"
	"github.com/shopcore/cart-service/internal/models"
	"github.com/shopcore/cart-service/internal/repo"
)

// EventSource is the slice of kafka.Reader the run loop needs: fetch without
// committing, then commit explicitly once the message is dealt with.
type EventSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrdersSubscriber struct {
	Reader EventSource
	Repo   *repo.GormRepo
	Log    *slog.Logger
}

func NewOrdersSubscriber(brokers []string, groupID string, r *repo.GormRepo, log *slog.Logger) *OrdersSubscriber {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    events.CheckoutTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &OrdersSubscriber{Reader: reader, Repo: r, Log: log}
}

// Run fetches until ctx is cancelled. A message is committed only once it has
// been dealt with: malformed payloads are logged, skipped and committed so
// they do not wedge the group, while any other handling failure stops the
// loop before the group offset moves. Committing a later message would
// advance the group past the failed one and lose it for good, so the caller
// restarts and re-consumes from the last commit instead.
func (s *OrdersSubscriber) Run(ctx context.Context) error {
	for {
		msg, err := s.Reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := s.Handle(ctx, msg.Value); err != nil {
			if !errors.Is(err, errBadPayload) {
				return fmt.Errorf("handle message at offset %d: %w", msg.Offset, err)
			}
			s.Log.Error("skipping malformed checkout event",
				"offset", msg.Offset, "key", string(msg.Key), "error", err)
		}

		if err := s.Reader.CommitMessages(ctx, msg); err != nil {
			s.Log.Error("commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

var errBadPayload = errors.New("bad payload")

// Handle records an order for CHECKOUT_SUCCESS events; everything else is
// ignored. Redelivered events are absorbed by the idempotent insert.
func (s *OrdersSubscriber) Handle(ctx context.Context, payload []byte) error {
	var event events.CheckoutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return errors.Join(errBadPayload, err)
	}

	if event.EventType != events.TypeCheckoutSuccess {
		return nil
	}
	if event.OrderID == "" || event.OwnerID == "" {
		return errBadPayload
	}

	order := models.Order{
		ID:         event.OrderID,
		OwnerID:    event.OwnerID,
		TotalMinor: event.TotalMinor,
		Currency:   event.Currency,
		CreatedAt:  event.Timestamp,
	}
	if err := s.Repo.RecordOrder(ctx, &order); err != nil {
		return err
	}

	s.Log.Info("order recorded", "order_id", order.ID, "owner_id", order.OwnerID)
	return nil
}

func (s *OrdersSubscriber) Close() error {
	return s.Reader.Close()
}
