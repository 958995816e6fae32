package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baburchi-admin/internal/courier"
	"baburchi-admin/internal/event"
	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/pkg/validator"
)

func TestCreateOrder_DecrementsStockAndTotals(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 3}))
	require.NoError(t, err)

	order := res.Order
	assert.Empty(t, res.Adjustments)
	assert.True(t, strings.HasPrefix(order.ID, "ORD-"))
	assert.Len(t, order.ID, 16)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, model.SyncUnsynced, order.CourierSyncState)
	assert.Equal(t, "m1", order.ModeratorID)
	assert.Equal(t, int64(1650), order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(550), order.Items[0].Price)
	assert.True(t, strings.HasPrefix(order.Items[0].ID, "oi-"))

	assert.Equal(t, 7, f.stock(t, "p1"))
	assert.Equal(t, 1, f.events.count(event.OrderCreated))
	assert.Equal(t, 1, f.events.count(event.StockUpdated))

	history, err := f.catalog.StockHistory(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementOut, history[0].Type)
	assert.Equal(t, 3, history[0].Quantity)
	assert.Equal(t, 7, history[0].StockAfter)
	require.NotNil(t, history[0].OrderID)
	assert.Equal(t, order.ID, *history[0].OrderID)
}

func TestCreateOrder_ClampsToAvailableStock(t *testing.T) {
	f := newFixture(t, OrderOptions{})

	res, err := f.orders.CreateOrder(context.Background(), rahim, cart(CartLine{ProductID: "p1", Quantity: 50}))
	require.NoError(t, err)

	assert.Equal(t, 10, res.Order.Items[0].Quantity)
	assert.Equal(t, int64(5500), res.Order.TotalAmount)
	require.Len(t, res.Adjustments, 1)
	assert.Equal(t, 50, res.Adjustments[0].Requested)
	assert.Equal(t, 10, res.Adjustments[0].Granted)
	assert.Contains(t, res.Adjustments[0].Message(), "Only 10 units")
	assert.Equal(t, 0, f.stock(t, "p1"))
}

func TestCreateOrder_RepeatedProductSharesStock(t *testing.T) {
	f := newFixture(t, OrderOptions{})

	res, err := f.orders.CreateOrder(context.Background(), rahim, cart(
		CartLine{ProductID: "p2", Quantity: 3},
		CartLine{ProductID: "p1", Quantity: 0},
		CartLine{ProductID: "p2", Quantity: 4},
	))
	require.NoError(t, err)

	items := res.Order.Items
	require.Len(t, items, 3)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Equal(t, 2, items[2].Quantity)
	assert.Equal(t, int64(3*300+550+2*300), res.Order.TotalAmount)
	assert.Len(t, res.Adjustments, 2)

	assert.Equal(t, 0, f.stock(t, "p2"))
	assert.Equal(t, 9, f.stock(t, "p1"))

	stored, err := f.orderRepo.FindByID(res.Order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 3)
	assert.Equal(t, "p2", stored.Items[0].ProductID)
	assert.Equal(t, "p1", stored.Items[1].ProductID)
	assert.Equal(t, res.Order.TotalAmount, stored.ComputeTotal())
}

func TestCreateOrder_RejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name    string
		req     *CreateOrderRequest
		wantErr error
	}{
		{"empty cart", cart(), ErrNoItems},
		{"unknown product", cart(CartLine{ProductID: "p1", Quantity: 2}, CartLine{ProductID: "nope", Quantity: 1}), ErrProductNotFound},
		{"invalid phone", func() *CreateOrderRequest {
			r := cart(CartLine{ProductID: "p1", Quantity: 1})
			r.CustomerPhone = "12345"
			return r
		}(), validator.ErrValidation},
		{"missing address", func() *CreateOrderRequest {
			r := cart(CartLine{ProductID: "p1", Quantity: 1})
			r.CustomerAddress = "   "
			return r
		}(), validator.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, OrderOptions{})

			_, err := f.orders.CreateOrder(context.Background(), rahim, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			orders, err := f.orderRepo.List(repository.OrderFilter{})
			require.NoError(t, err)
			assert.Empty(t, orders)
			assert.Equal(t, 10, f.stock(t, "p1"))
			assert.Zero(t, f.events.count(event.OrderCreated))
		})
	}
}

func TestCreateOrder_OutOfStock(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	_, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p2", Quantity: 5}))
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, sumit, cart(CartLine{ProductID: "p2", Quantity: 1}))
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 0, f.stock(t, "p2"))
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	id := res.Order.ID

	updated, err := f.orders.UpdateStatus(ctx, rahim, id, model.OrderConfirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, updated.Status)
	assert.Equal(t, "Karim Uddin", updated.CustomerName)
	assert.Len(t, updated.Items, 1)

	// same status again is accepted
	_, err = f.orders.UpdateStatus(ctx, rahim, id, model.OrderConfirmed, nil)
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, admin, id, model.OrderDelivered, nil)
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, admin, id, model.OrderPending, nil)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, model.OrderDelivered, terr.From)
	assert.Equal(t, model.OrderPending, terr.To)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.orderRepo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, stored.Status)
	assert.Equal(t, 2, f.events.count(event.OrderStatusChanged))
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, admin, "ORD-MISSING", model.OrderConfirmed, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.orders.UpdateStatus(ctx, sumit, res.Order.ID, model.OrderConfirmed, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderStatus("SHIPPED"), nil)
	assert.ErrorIs(t, err, validator.ErrValidation)

	orders, err := f.orderRepo.List(repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderPending, orders[0].Status)
}

func TestUpdateStatus_CourierDataIsOneWay(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	updated, err := f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderConfirmed,
		&CourierUpdate{ConsignmentID: "555", Status: "in_review", TrackingCode: "TRK555"})
	require.NoError(t, err)
	require.NotNil(t, updated.SteadfastID)
	assert.Equal(t, "555", *updated.SteadfastID)
	assert.Equal(t, model.SyncSynced, updated.CourierSyncState)

	_, err = f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderConfirmed,
		&CourierUpdate{ConsignmentID: "556"})
	assert.ErrorIs(t, err, ErrCourierAlreadySynced)

	stored, err := f.orderRepo.FindByID(res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "555", *stored.SteadfastID)
}

func TestUpdateStatus_CourierDataIsAdminOnly(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.orders.UpdateStatus(ctx, rahim, res.Order.ID, model.OrderConfirmed,
		&CourierUpdate{ConsignmentID: "555", Status: "in_review"})
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := f.orderRepo.FindByID(res.Order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SteadfastID)
	assert.Equal(t, model.OrderPending, stored.Status)

	// the status alone is still the moderator's to change
	_, err = f.orders.UpdateStatus(ctx, rahim, res.Order.ID, model.OrderConfirmed, nil)
	require.NoError(t, err)
}

func TestUpdateStatus_CancelRestock(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, OrderOptions{})
		ctx := context.Background()

		res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 3}))
		require.NoError(t, err)
		_, err = f.orders.UpdateStatus(ctx, rahim, res.Order.ID, model.OrderCancelled, nil)
		require.NoError(t, err)

		assert.Equal(t, 7, f.stock(t, "p1"))
	})

	t.Run("enabled", func(t *testing.T) {
		f := newFixture(t, OrderOptions{RestockOnCancel: true})
		ctx := context.Background()

		res, err := f.orders.CreateOrder(ctx, rahim, cart(
			CartLine{ProductID: "p1", Quantity: 3},
			CartLine{ProductID: "p1", Quantity: 2},
		))
		require.NoError(t, err)
		assert.Equal(t, 5, f.stock(t, "p1"))

		_, err = f.orders.UpdateStatus(ctx, rahim, res.Order.ID, model.OrderCancelled, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, f.stock(t, "p1"))

		// cancelling again does not restock twice
		_, err = f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderCancelled, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, f.stock(t, "p1"))
	})
}

func TestSyncCourier_Success(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 3}))
	require.NoError(t, err)

	synced, err := f.orders.SyncCourier(ctx, admin, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, synced.Status)
	require.NotNil(t, synced.SteadfastID)
	assert.Equal(t, "1001", *synced.SteadfastID)
	require.NotNil(t, synced.CourierStatus)
	assert.Equal(t, "in_review", *synced.CourierStatus)
	assert.Equal(t, model.SyncSynced, synced.CourierSyncState)

	assert.Equal(t, res.Order.ID, f.courier.lastReq.Invoice)
	assert.Equal(t, int64(1650), f.courier.lastReq.CODAmount)
	assert.Equal(t, "Chili Powder 500g x3", f.courier.lastReq.ItemDescription)
	assert.Equal(t, 1, f.events.count(event.OrderCourierSynced))

	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	assert.ErrorIs(t, err, ErrCourierAlreadySynced)
	assert.Equal(t, 1, f.courier.callCount())
}

func TestSyncCourier_FailureReleasesClaim(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	f.courier.err = &courier.APIError{StatusCode: 422, Message: "invalid phone"}
	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	assert.ErrorIs(t, err, ErrCourierSyncFailed)
	assert.Contains(t, err.Error(), "invalid phone")

	stored, err := f.orderRepo.FindByID(res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, stored.Status)
	assert.Equal(t, model.SyncUnsynced, stored.CourierSyncState)
	assert.Nil(t, stored.SteadfastID)

	f.courier.err = nil
	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	require.NoError(t, err)
}

func TestSyncCourier_Preconditions(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.orders.SyncCourier(ctx, rahim, res.Order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	assert.ErrorIs(t, err, courier.ErrNotConfigured)

	f.configureCourier(t)
	_, err = f.orders.SyncCourier(ctx, admin, "ORD-MISSING")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderCancelled, nil)
	require.NoError(t, err)
	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Zero(t, f.courier.callCount())
}

func TestSyncCourier_ConcurrentAttemptIsRejected(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	f.courier.entered = make(chan struct{}, 1)
	f.courier.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orders.SyncCourier(ctx, admin, res.Order.ID)
		done <- err
	}()
	<-f.courier.entered

	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	assert.ErrorIs(t, err, ErrCourierSyncInFlight)

	close(f.courier.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.courier.callCount())

	stored, err := f.orderRepo.FindByID(res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1001", *stored.SteadfastID)
}

func webhook(consignmentID, status string) courier.WebhookPayload {
	return courier.WebhookPayload{
		NotificationType: "delivery_status",
		ConsignmentID:    json.Number(consignmentID),
		Status:           status,
	}
}

func TestHandleCourierWebhook(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.SyncCourier(ctx, admin, res.Order.ID)
	require.NoError(t, err)

	_, err = f.orders.HandleCourierWebhook(ctx, "wrong", webhook("1001", "delivered"))
	assert.ErrorIs(t, err, ErrWebhookUnauthorized)

	_, err = f.orders.HandleCourierWebhook(ctx, "api-key", webhook("9999", "delivered"))
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order, err := f.orders.HandleCourierWebhook(ctx, "api-key", webhook("1001", "pending"))
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, order.Status)
	assert.Equal(t, "pending", *order.CourierStatus)

	before := f.events.count(event.OrderStatusChanged)
	order, err = f.orders.HandleCourierWebhook(ctx, "api-key", webhook("1001", "delivered"))
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, order.Status)
	assert.Equal(t, "delivered", *order.CourierStatus)
	assert.Equal(t, before+1, f.events.count(event.OrderStatusChanged))

	// redelivery of the same callback is ignored
	_, err = f.orders.HandleCourierWebhook(ctx, "api-key", webhook("1001", "delivered"))
	require.NoError(t, err)
	assert.Equal(t, before+1, f.events.count(event.OrderStatusChanged))
}

func TestHandleCourierWebhook_FailureCanBeRetried(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderCancelled, nil)
	require.NoError(t, err)

	payload := courier.WebhookPayload{Invoice: res.Order.ID, Status: "delivered"}
	_, err = f.orders.HandleCourierWebhook(ctx, "api-key", payload)
	require.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = f.orders.HandleCourierWebhook(ctx, "api-key", payload)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGetAndListOrders_ScopedToModerator(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	mine, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	req := cart(CartLine{ProductID: "p2", Quantity: 1})
	req.CustomerName = "Nasima Begum"
	theirs, err := f.orders.CreateOrder(ctx, sumit, req)
	require.NoError(t, err)

	list, err := f.orders.ListOrders(ctx, rahim, OrderQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.Order.ID, list[0].ID)

	list, err = f.orders.ListOrders(ctx, admin, OrderQuery{Search: "nasima"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, theirs.Order.ID, list[0].ID)

	list, err = f.orders.ListOrders(ctx, admin, OrderQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.orders.GetOrder(ctx, rahim, theirs.Order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	got, err := f.orders.GetOrder(ctx, admin, theirs.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nasima Begum", got.CustomerName)

	_, err = f.orders.ListOrders(ctx, admin, OrderQuery{Status: "SHIPPED"})
	assert.ErrorIs(t, err, validator.ErrValidation)
}

func TestClampQuantity(t *testing.T) {
	assert.Equal(t, 1, clampQuantity(0, 5))
	assert.Equal(t, 1, clampQuantity(-3, 5))
	assert.Equal(t, 3, clampQuantity(3, 5))
	assert.Equal(t, 5, clampQuantity(9, 5))
}

func TestHandleCourierWebhook_DeliveredBeforeConfirm(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	payload := webhook("4242", "delivered")
	payload.Invoice = res.Order.ID
	order, err := f.orders.HandleCourierWebhook(ctx, "api-key", payload)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, order.Status)
	require.NotNil(t, order.SteadfastID)
	assert.Equal(t, "4242", *order.SteadfastID)
	assert.Equal(t, model.SyncSynced, order.CourierSyncState)
}

func TestHandleCourierWebhook_RefusedStatusStillAttachesConsignment(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	f.configureCourier(t)
	ctx := context.Background()

	res, err := f.orders.CreateOrder(ctx, rahim, cart(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, admin, res.Order.ID, model.OrderCancelled, nil)
	require.NoError(t, err)

	payload := webhook("4343", "delivered")
	payload.Invoice = res.Order.ID
	_, err = f.orders.HandleCourierWebhook(ctx, "api-key", payload)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.orderRepo.FindByID(res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, stored.Status)
	require.NotNil(t, stored.SteadfastID)
	assert.Equal(t, "4343", *stored.SteadfastID)
	assert.Equal(t, "delivered", *stored.CourierStatus)

	// the next callback finds the order by its consignment id
	_, err = f.orders.HandleCourierWebhook(ctx, "api-key", webhook("4343", "delivered"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
