package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopcore/cart-service/internal/models"
)

// refreshCartTotal recomputes the denormalized header total from the item
// rows. Must run inside the same transaction as the item mutation.
func refreshCartTotal(tx *gorm.DB, ownerID string) error {
	return tx.Exec(
		`UPDATE carts SET total_price_minor = (
			SELECT COALESCE(SUM(unit_price_minor * quantity), 0)
			FROM cart_items WHERE owner_id = ?
		), updated_at = ? WHERE owner_id = ?`,
		ownerID, time.Now().UTC(), ownerID,
	).Error
}

// GetCart returns the header plus all items ordered by creation time, then
// item id. Both reads run in one transaction so the denormalized total never
// disagrees with the item rows it was computed from. Returns
// gorm.ErrRecordNotFound when no header row exists.
func (r *GormRepo) GetCart(ctx context.Context, ownerID string) (*models.CartSnapshot, error) {
	var snap models.CartSnapshot
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("owner_id = ?", ownerID).First(&cart).Error; err != nil {
			return err
		}

		items := make([]models.CartItem, 0)
		if err := tx.
			Where("owner_id = ?", ownerID).
			Order("created_at ASC, item_id ASC").
			Find(&items).Error; err != nil {
			return err
		}

		snap = models.CartSnapshot{
			OwnerID:    cart.OwnerID,
			Currency:   cart.Currency,
			TotalMinor: cart.TotalMinor,
			UpdatedAt:  cart.UpdatedAt,
			Items:      items,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *GormRepo) CartExists(ctx context.Context, ownerID string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) EnsureCart(ctx context.Context, ownerID string) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Cart{OwnerID: ownerID, Currency: models.DefaultCurrency}).Error
}

// UpsertCart replaces the whole item set for the owner in one transaction:
// upsert the header, delete existing items, insert the new set. Any failure
// rolls the whole write back.
func (r *GormRepo) UpsertCart(ctx context.Context, ownerID, currency string, items []models.CartItem) (*models.CartSnapshot, error) {
	if currency == "" {
		currency = models.DefaultCurrency
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart := models.Cart{OwnerID: ownerID, Currency: currency}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"currency", "updated_at"}),
		}).Create(&cart).Error; err != nil {
			return err
		}

		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OwnerID = ownerID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
		}

		return refreshCartTotal(tx, ownerID)
	})
	if err != nil {
		return nil, err
	}

	return r.GetCart(ctx, ownerID)
}

// UpsertItem inserts the item or updates the existing (owner, item) row.
// With combine the incoming quantity is added to the stored one, otherwise
// it replaces it. Non-quantity fields are only overwritten when provided.
func (r *GormRepo) UpsertItem(ctx context.Context, item *models.CartItem, combine bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Cart{OwnerID: item.OwnerID, Currency: models.DefaultCurrency}).Error; err != nil {
			return err
		}

		assignments := map[string]interface{}{}
		if combine {
			assignments["quantity"] = gorm.Expr("quantity + ?", item.Quantity)
		} else {
			assignments["quantity"] = item.Quantity
		}
		if item.SKU != "" {
			assignments["sku"] = item.SKU
		}
		if item.Name != "" {
			assignments["name"] = item.Name
		}
		if item.UnitPriceMinor > 0 {
			assignments["unit_price_minor"] = item.UnitPriceMinor
		}
		if item.Metadata != nil {
			assignments["metadata"] = item.Metadata
		}

		res := tx.Model(&models.CartItem{}).
			Where("owner_id = ? AND item_id = ?", item.OwnerID, item.ItemID).
			Updates(assignments)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(item).Error; err != nil {
				return err
			}
		}

		return refreshCartTotal(tx, item.OwnerID)
	})
}

// SetItemQuantity updates the stored quantity. Quantity 0 deletes the row and
// succeeds even when the row is already absent; quantity >= 1 on a missing
// row reports gorm.ErrRecordNotFound.
func (r *GormRepo) SetItemQuantity(ctx context.Context, ownerID, itemID string, quantity uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if quantity == 0 {
			if err := tx.Where("owner_id = ? AND item_id = ?", ownerID, itemID).
				Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			return refreshCartTotal(tx, ownerID)
		}

		res := tx.Model(&models.CartItem{}).
			Where("owner_id = ? AND item_id = ?", ownerID, itemID).
			Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return refreshCartTotal(tx, ownerID)
	})
}

// RemoveItem deletes the row if present; idempotent.
func (r *GormRepo) RemoveItem(ctx context.Context, ownerID, itemID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND item_id = ?", ownerID, itemID).
			Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return refreshCartTotal(tx, ownerID)
	})
}

// DeleteCart removes all items then the header in one transaction. Reports
// gorm.ErrRecordNotFound when no header existed.
func (r *GormRepo) DeleteCart(ctx context.Context, ownerID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("owner_id = ?", ownerID).Delete(&models.Cart{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
