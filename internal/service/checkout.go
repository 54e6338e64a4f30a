package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopcore/cart-service/internal/events"
	"github.com/shopcore/cart-service/internal/logging"
	"github.com/shopcore/cart-service/internal/models"
)

// CheckoutResult is the confirmation returned on a successful checkout. The
// order id is generated before the cart is cleared and survives a clearing
// failure.
type CheckoutResult struct {
	OrderID    string `json:"order_id"`
	TotalMinor int64  `json:"total_price_minor"`
	Currency   string `json:"currency"`
}

// Checkout runs the ATTEMPT -> SUCCEEDED|FAILED transition for one owner.
// Preconditions (address, non-empty cart, product validation) are checked
// before any event is emitted; ATTEMPT always precedes the terminal event.
func (s *CartService) Checkout(ctx context.Context, ownerID string, address *models.Address) (*CheckoutResult, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}
	if address == nil || address.Line1 == "" {
		return nil, fmt.Errorf("shipping address with line1 is required: %w", ErrValidation)
	}

	snap, err := s.Repo.GetCart(ctx, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checkout: %w", ErrEmptyCart)
	}
	if err != nil {
		return nil, err
	}
	if len(snap.Items) == 0 {
		return nil, fmt.Errorf("checkout: %w", ErrEmptyCart)
	}

	if err := s.checkProducts(ctx, snap.Items); err != nil {
		return nil, err
	}

	s.publish(ctx, events.CheckoutTopic, ownerID, events.CheckoutEvent{
		EventID:    uuid.NewString(),
		EventType:  events.TypeCheckoutAttempt,
		Timestamp:  time.Now().UTC(),
		OwnerID:    ownerID,
		TotalMinor: snap.TotalMinor,
		Currency:   snap.Currency,
		Address:    address,
	})

	decider := s.Payments
	if decider == nil {
		decider = AlwaysApprove{}
	}
	approved, err := decider.Decide(ctx, ownerID, snap.TotalMinor, snap.Currency)
	if err != nil {
		s.publishCheckoutFailed(ctx, snap, "payment decision error")
		return nil, fmt.Errorf("payment decision: %v: %w", err, ErrDependencyUnavailable)
	}
	if !approved {
		s.publishCheckoutFailed(ctx, snap, "payment declined")
		return nil, fmt.Errorf("checkout: %w", ErrPaymentDeclined)
	}

	orderID := uuid.NewString()
	s.publish(ctx, events.CheckoutTopic, ownerID, events.CheckoutEvent{
		EventID:    uuid.NewString(),
		EventType:  events.TypeCheckoutSuccess,
		Timestamp:  time.Now().UTC(),
		OwnerID:    ownerID,
		TotalMinor: snap.TotalMinor,
		Currency:   snap.Currency,
		OrderID:    orderID,
		Address:    address,
	})

	// The SUCCESS event is the durable record; a clearing failure must not
	// revert the outcome.
	if err := s.Repo.DeleteCart(ctx, ownerID); err != nil {
		logging.FromContext(ctx).Error("cart clear after checkout failed",
			"owner_id", ownerID, "order_id", orderID, "error", err)
	}

	return &CheckoutResult{
		OrderID:    orderID,
		TotalMinor: snap.TotalMinor,
		Currency:   snap.Currency,
	}, nil
}

func (s *CartService) publishCheckoutFailed(ctx context.Context, snap *models.CartSnapshot, reason string) {
	s.publish(ctx, events.CheckoutTopic, snap.OwnerID, events.CheckoutEvent{
		EventID:    uuid.NewString(),
		EventType:  events.TypeCheckoutFailed,
		Timestamp:  time.Now().UTC(),
		OwnerID:    snap.OwnerID,
		TotalMinor: snap.TotalMinor,
		Currency:   snap.Currency,
		Reason:     reason,
	})
}
