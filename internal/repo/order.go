package repo

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/shopcore/cart-service/internal/models"
)

// RecordOrder persists an order fact. Insert is idempotent on the order id so
// redelivered checkout events are safe.
func (r *GormRepo) RecordOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(order).Error
}

func (r *GormRepo) ListOrders(ctx context.Context, ownerID string, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
