package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baburchi-admin/internal/model"
	"baburchi-admin/pkg/validator"
)

func intPtr(v int) *int { return &v }

func TestCreateProduct(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, admin, &ProductRequest{SKU: " garam-100 ", Name: "Garam Masala 100g", Price: 250})
	require.NoError(t, err)
	assert.Equal(t, "GARAM-100", p.SKU)
	assert.Equal(t, model.DefaultStock, p.Stock)

	history, err := f.catalog.StockHistory(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementIn, history[0].Type)

	zero, err := f.catalog.CreateProduct(ctx, admin, &ProductRequest{SKU: "CUMIN-50", Name: "Cumin 50g", Price: 90, Stock: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, zero.Stock)

	_, err = f.catalog.CreateProduct(ctx, admin, &ProductRequest{SKU: "CHILI-500", Name: "Duplicate", Price: 1})
	assert.ErrorIs(t, err, ErrDuplicateSKU)

	_, err = f.catalog.CreateProduct(ctx, admin, &ProductRequest{SKU: "NEG-1", Name: "Negative", Price: -1})
	assert.ErrorIs(t, err, validator.ErrValidation)

	_, err = f.catalog.CreateProduct(ctx, rahim, &ProductRequest{SKU: "MOD-1", Name: "Mod", Price: 1})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateProduct_RecordsAdjustment(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	p, err := f.catalog.UpdateProduct(ctx, admin, "p1", &ProductRequest{SKU: "CHILI-500", Name: "Chili Powder 500g", Price: 600, Stock: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(600), p.Price)
	assert.Equal(t, 4, p.Stock)

	history, err := f.catalog.StockHistory(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementAdjust, history[0].Type)
	assert.Equal(t, -6, history[0].Quantity)

	// nil stock keeps the current level
	p, err = f.catalog.UpdateProduct(ctx, admin, "p1", &ProductRequest{SKU: "CHILI-500", Name: "Red Chili 500g", Price: 600})
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)

	_, err = f.catalog.UpdateProduct(ctx, admin, "p1", &ProductRequest{SKU: "TURMERIC-200", Name: "Clash", Price: 1})
	assert.ErrorIs(t, err, ErrDuplicateSKU)

	_, err = f.catalog.UpdateProduct(ctx, admin, "missing", &ProductRequest{SKU: "NEW-1", Name: "Nope", Price: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	require.NoError(t, f.catalog.DeleteProduct(ctx, admin, "p2"))
	assert.ErrorIs(t, f.catalog.DeleteProduct(ctx, admin, "p2"), ErrProductNotFound)

	products, err := f.catalog.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)

	_, err = f.catalog.GetProduct(ctx, "p2")
	assert.ErrorIs(t, err, ErrProductNotFound)

	// the SKU of a deleted product stays reserved
	_, err = f.catalog.CreateProduct(ctx, admin, &ProductRequest{SKU: "TURMERIC-200", Name: "Again", Price: 1})
	assert.ErrorIs(t, err, ErrDuplicateSKU)
}
