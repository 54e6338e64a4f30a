package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shopcore/cart-service/internal/events"
	"github.com/shopcore/cart-service/internal/logging"
	"github.com/shopcore/cart-service/internal/models"
	"github.com/shopcore/cart-service/internal/repo"
)

const publishTimeout = 5 * time.Second

// EventPublisher is the bus capability the service calls. Delivery is
// best-effort; see publish.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// ProductValidator reports which of the given item ids do not resolve to a
// known product. Optional collaborator; nil disables the check.
type ProductValidator interface {
	Missing(ctx context.Context, itemIDs []string) ([]string, error)
}

// PaymentDecider approves or declines a checkout attempt.
type PaymentDecider interface {
	Decide(ctx context.Context, ownerID string, totalMinor int64, currency string) (bool, error)
}

// AlwaysApprove is the default decider: payment processing is an external
// concern stubbed as deterministic approval.
type AlwaysApprove struct{}

func (AlwaysApprove) Decide(ctx context.Context, ownerID string, totalMinor int64, currency string) (bool, error) {
	return true, nil
}

type CartService struct {
	Repo      *repo.GormRepo
	Publisher EventPublisher
	Products  ProductValidator
	Payments  PaymentDecider

	inflight sync.WaitGroup
}

// publish delivers an event with a bounded timeout detached from request
// cancellation. Failures are logged with full payload context and never
// surfaced to the caller.
func (s *CartService) publish(ctx context.Context, topic, key string, event interface{}) {
	if s.Publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Publisher.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event publish failed",
			"topic", topic, "key", key, "event", event, "error", err)
	}
}

// publishCartUpdated emits the snapshot without blocking the caller's
// response. Checkout events stay in-line instead, so ATTEMPT always reaches
// the bus before its terminal event.
func (s *CartService) publishCartUpdated(ctx context.Context, snap *models.CartSnapshot) {
	event := events.CartUpdated{
		EventType: events.TypeCartUpdated,
		Timestamp: time.Now().UTC(),
		Cart:      snap,
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.publish(ctx, events.CartTopic, snap.OwnerID, event)
	}()
}

// Drain blocks until detached snapshot publishes have finished. Called on
// shutdown so in-flight events are not dropped with the process.
func (s *CartService) Drain() {
	s.inflight.Wait()
}

func validateOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner id is required: %w", ErrValidation)
	}
	return nil
}

func validateItem(item *models.CartItem) error {
	if item.ItemID == "" {
		return fmt.Errorf("item id is required: %w", ErrValidation)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}
	return nil
}

// checkProducts runs the optional product validation and reports the exact
// set of unknown ids.
func (s *CartService) checkProducts(ctx context.Context, items []models.CartItem) error {
	if s.Products == nil {
		return nil
	}
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ItemID)
	}
	missing, err := s.Products.Missing(ctx, ids)
	if err != nil {
		return fmt.Errorf("product validation: %v: %w", err, ErrDependencyUnavailable)
	}
	if len(missing) > 0 {
		return &UnknownProductsError{Missing: missing}
	}
	return nil
}

// GetCart returns the canonical snapshot. An owner with no cart row reads as
// an empty snapshot rather than an error.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*models.CartSnapshot, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	snap, err := s.Repo.GetCart(ctx, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CartSnapshot{
			OwnerID:  ownerID,
			Currency: models.DefaultCurrency,
			Items:    []models.CartItem{},
		}, nil
	}
	return snap, err
}

// ReplaceCart swaps the whole item set atomically and publishes the new
// snapshot.
func (s *CartService) ReplaceCart(ctx context.Context, ownerID, currency string, items []models.CartItem) (*models.CartSnapshot, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("items must not be empty: %w", ErrValidation)
	}
	for i := range items {
		if err := validateItem(&items[i]); err != nil {
			return nil, err
		}
	}
	if err := s.checkProducts(ctx, items); err != nil {
		return nil, err
	}

	snap, err := s.Repo.UpsertCart(ctx, ownerID, currency, items)
	if err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, snap)
	return snap, nil
}

// AddItem inserts or updates one item. With merge the quantity is added to
// the stored one.
func (s *CartService) AddItem(ctx context.Context, ownerID string, item models.CartItem, merge bool) (*models.CartSnapshot, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}
	if err := s.checkProducts(ctx, []models.CartItem{item}); err != nil {
		return nil, err
	}

	item.OwnerID = ownerID
	if err := s.Repo.UpsertItem(ctx, &item, merge); err != nil {
		return nil, err
	}

	snap, err := s.Repo.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.publishCartUpdated(ctx, snap)
	return snap, nil
}

// SetItemQuantity sets the stored quantity; zero removes the row.
func (s *CartService) SetItemQuantity(ctx context.Context, ownerID, itemID string, quantity int) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	if itemID == "" {
		return fmt.Errorf("item id is required: %w", ErrValidation)
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative: %w", ErrValidation)
	}

	err := s.Repo.SetItemQuantity(ctx, ownerID, itemID, uint(quantity))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if snap, gerr := s.Repo.GetCart(ctx, ownerID); gerr == nil {
		s.publishCartUpdated(ctx, snap)
	}
	return nil
}

// RemoveItem deletes the row if present; idempotent.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, itemID string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	if itemID == "" {
		return fmt.Errorf("item id is required: %w", ErrValidation)
	}
	if err := s.Repo.RemoveItem(ctx, ownerID, itemID); err != nil {
		return err
	}

	if snap, gerr := s.Repo.GetCart(ctx, ownerID); gerr == nil {
		s.publishCartUpdated(ctx, snap)
	}
	return nil
}

// DeleteCart removes items and header; reports not-found when the owner has
// no cart.
func (s *CartService) DeleteCart(ctx context.Context, ownerID string) error {
	if err := validateOwner(ownerID); err != nil {
		return err
	}
	err := s.Repo.DeleteCart(ctx, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cart for %s: %w", ownerID, ErrNotFound)
	}
	return err
}
