package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopcore/cart-service/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every session sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Cart{}, &models.CartItem{}, &models.Order{}))

	t.Cleanup(func() { sqlDB.Close() })

	return &GormRepo{DB: db}
}

func TestUpsertCartRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	items := []models.CartItem{
		{ItemID: "p1", Name: "mug", UnitPriceMinor: 500, Quantity: 2},
		{ItemID: "p2", Name: "plate", UnitPriceMinor: 300, Quantity: 1},
		{ItemID: "p3", SKU: "SKU-3", UnitPriceMinor: 1000, Quantity: 3},
	}

	snap, err := r.UpsertCart(ctx, "u1", "EUR", items)
	require.NoError(t, err)
	require.Equal(t, "u1", snap.OwnerID)
	require.Equal(t, "EUR", snap.Currency)
	require.Len(t, snap.Items, 3)
	require.Equal(t, "p1", snap.Items[0].ItemID)
	require.Equal(t, "p2", snap.Items[1].ItemID)
	require.Equal(t, "p3", snap.Items[2].ItemID)
	require.EqualValues(t, 2, snap.Items[0].Quantity)
	require.EqualValues(t, 500*2+300*1+1000*3, snap.TotalMinor)

	got, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, snap.TotalMinor, got.TotalMinor)
	require.Len(t, got.Items, 3)
}

func TestUpsertCartReplacesItemSet(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.UpsertCart(ctx, "u1", "EUR", []models.CartItem{
		{ItemID: "p1", UnitPriceMinor: 500, Quantity: 2},
		{ItemID: "p2", UnitPriceMinor: 300, Quantity: 1},
	})
	require.NoError(t, err)

	snap, err := r.UpsertCart(ctx, "u1", "USD", []models.CartItem{
		{ItemID: "p9", UnitPriceMinor: 100, Quantity: 4},
	})
	require.NoError(t, err)
	require.Equal(t, "USD", snap.Currency)
	require.Len(t, snap.Items, 1)
	require.Equal(t, "p9", snap.Items[0].ItemID)
	require.EqualValues(t, 400, snap.TotalMinor)
}

func TestUpsertCartRollbackLeavesStateIntact(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	before, err := r.UpsertCart(ctx, "u1", "EUR", []models.CartItem{
		{ItemID: "p1", Name: "mug", UnitPriceMinor: 500, Quantity: 2},
	})
	require.NoError(t, err)

	// duplicate item id violates the composite primary key mid-transaction
	_, err = r.UpsertCart(ctx, "u1", "USD", []models.CartItem{
		{ItemID: "p2", UnitPriceMinor: 100, Quantity: 1},
		{ItemID: "p2", UnitPriceMinor: 100, Quantity: 1},
	})
	require.Error(t, err)

	after, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "EUR", after.Currency)
	require.Len(t, after.Items, 1)
	require.Equal(t, "p1", after.Items[0].ItemID)
	require.Equal(t, "mug", after.Items[0].Name)
	require.EqualValues(t, 2, after.Items[0].Quantity)
	require.Equal(t, before.TotalMinor, after.TotalMinor)
}

func TestUpsertItemMergeAddsQuantity(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 2}
	require.NoError(t, r.UpsertItem(ctx, &item, true))

	again := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 2}
	require.NoError(t, r.UpsertItem(ctx, &again, true))

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.EqualValues(t, 4, snap.Items[0].Quantity)
	require.EqualValues(t, 2000, snap.TotalMinor)
}

func TestUpsertItemReplaceOverwritesQuantity(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 5}
	require.NoError(t, r.UpsertItem(ctx, &item, false))

	replacement := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 2}
	require.NoError(t, r.UpsertItem(ctx, &replacement, false))

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, snap.Items[0].Quantity)
	require.EqualValues(t, 1000, snap.TotalMinor)
}

func TestUpsertItemPartialPayloadKeepsKnownFields(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	first := models.CartItem{
		OwnerID: "u1", ItemID: "p1",
		SKU: "SKU-1", Name: "mug", UnitPriceMinor: 500, Quantity: 1,
		Metadata: []byte(`{"color":"red"}`),
	}
	require.NoError(t, r.UpsertItem(ctx, &first, false))

	// quantity-only payload must not blank out sku/name/price/metadata
	partial := models.CartItem{OwnerID: "u1", ItemID: "p1", Quantity: 3}
	require.NoError(t, r.UpsertItem(ctx, &partial, false))

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	got := snap.Items[0]
	require.EqualValues(t, 3, got.Quantity)
	require.Equal(t, "SKU-1", got.SKU)
	require.Equal(t, "mug", got.Name)
	require.EqualValues(t, 500, got.UnitPriceMinor)
	require.JSONEq(t, `{"color":"red"}`, string(got.Metadata))
}

func TestUpsertItemCreatesHeaderLazily(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	exists, err := r.CartExists(ctx, "u1")
	require.NoError(t, err)
	require.False(t, exists)

	item := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 100, Quantity: 1}
	require.NoError(t, r.UpsertItem(ctx, &item, true))

	exists, err = r.CartExists(ctx, "u1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestSetItemQuantityZeroDeletesRow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 2}
	require.NoError(t, r.UpsertItem(ctx, &item, false))

	require.NoError(t, r.SetItemQuantity(ctx, "u1", "p1", 0))

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, snap.Items)
	require.EqualValues(t, 0, snap.TotalMinor)

	// deleting an absent row is still a success
	require.NoError(t, r.SetItemQuantity(ctx, "u1", "p1", 0))
}

func TestSetItemQuantityMissingRowIsNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.EnsureCart(ctx, "u1"))

	err := r.SetItemQuantity(ctx, "u1", "nope", 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetItemQuantityUpdatesTotal(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 2}
	require.NoError(t, r.UpsertItem(ctx, &item, false))

	require.NoError(t, r.SetItemQuantity(ctx, "u1", "p1", 5))

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 5, snap.Items[0].Quantity)
	require.EqualValues(t, 2500, snap.TotalMinor)
}

func TestRemoveItemIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	item := models.CartItem{OwnerID: "u1", ItemID: "p1", UnitPriceMinor: 500, Quantity: 2}
	require.NoError(t, r.UpsertItem(ctx, &item, false))

	require.NoError(t, r.RemoveItem(ctx, "u1", "p1"))
	require.NoError(t, r.RemoveItem(ctx, "u1", "p1"))

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, snap.Items)
}

func TestDeleteCartRemovesEverything(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.UpsertCart(ctx, "u1", "EUR", []models.CartItem{
		{ItemID: "p1", UnitPriceMinor: 500, Quantity: 2},
	})
	require.NoError(t, err)

	require.NoError(t, r.DeleteCart(ctx, "u1"))

	_, err = r.GetCart(ctx, "u1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = r.DeleteCart(ctx, "u1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteCartIsolatedPerOwner(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.UpsertCart(ctx, "u1", "EUR", []models.CartItem{{ItemID: "p1", UnitPriceMinor: 100, Quantity: 1}})
	require.NoError(t, err)
	_, err = r.UpsertCart(ctx, "u2", "EUR", []models.CartItem{{ItemID: "p1", UnitPriceMinor: 100, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, r.DeleteCart(ctx, "u1"))

	snap, err := r.GetCart(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
}

func TestGetCartOrderingIsDeterministic(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.EnsureCart(ctx, "u1"))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.CartItem{
		{OwnerID: "u1", ItemID: "z-late", UnitPriceMinor: 100, Quantity: 1, CreatedAt: base.Add(2 * time.Minute)},
		{OwnerID: "u1", ItemID: "b-tie", UnitPriceMinor: 100, Quantity: 1, CreatedAt: base},
		{OwnerID: "u1", ItemID: "a-tie", UnitPriceMinor: 100, Quantity: 1, CreatedAt: base},
	}
	for i := range rows {
		require.NoError(t, r.DB.Create(&rows[i]).Error)
	}

	snap, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 3)
	// creation time first, item id breaks the tie
	require.Equal(t, "a-tie", snap.Items[0].ItemID)
	require.Equal(t, "b-tie", snap.Items[1].ItemID)
	require.Equal(t, "z-late", snap.Items[2].ItemID)
}

// Snapshots read under a concurrent writer must still be internally
// consistent: the header total always matches the item rows returned with it.
func TestGetCartSnapshotInternallyConsistent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.UpsertCart(ctx, "u1", "EUR", []models.CartItem{
		{ItemID: "p1", UnitPriceMinor: 500, Quantity: 2},
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			item := models.CartItem{OwnerID: "u1", ItemID: "p2", UnitPriceMinor: 300, Quantity: uint(i%5 + 1)}
			if err := r.UpsertItem(ctx, &item, false); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 25; i++ {
		snap, err := r.GetCart(ctx, "u1")
		require.NoError(t, err)

		var sum int64
		for _, it := range snap.Items {
			sum += it.UnitPriceMinor * int64(it.Quantity)
		}
		require.Equal(t, sum, snap.TotalMinor)
	}
	<-done
}

func TestRecordOrderIdempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	order := models.Order{ID: "o1", OwnerID: "u1", TotalMinor: 1000, Currency: "EUR"}
	require.NoError(t, r.RecordOrder(ctx, &order))

	dup := models.Order{ID: "o1", OwnerID: "u1", TotalMinor: 1000, Currency: "EUR"}
	require.NoError(t, r.RecordOrder(ctx, &dup))

	orders, err := r.ListOrders(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}
