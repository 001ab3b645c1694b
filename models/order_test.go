package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func twoLineOrder() *Order {
	return &Order{
		Items: []OrderItem{
			{FoodID: primitive.NewObjectID(), Name: "Osh", Price: 12500, Quantity: 2, Total: 25000},
			{FoodID: primitive.NewObjectID(), Name: "Choy", Price: 5000, Quantity: 2, Total: 10000},
		},
		Status:           OrderStatusPending,
		WaiterPercentage: 10,
	}
}

func TestRecalculateTotals(t *testing.T) {
	o := twoLineOrder()
	o.RecalculateTotals()

	assert.Equal(t, 35000.0, o.TotalPrice)
	assert.Equal(t, 3500.0, o.ServiceAmount)
	assert.Equal(t, 0.0, o.TaxAmount)
	assert.Equal(t, 38500.0, o.FinalTotal)
}

func TestRecalculateTotalsAfterFullCancellation(t *testing.T) {
	o := twoLineOrder()
	o.Items = nil
	o.RecalculateTotals()

	assert.Equal(t, 0.0, o.TotalPrice)
	assert.Equal(t, 0.0, o.ServiceAmount)
	assert.Equal(t, 0.0, o.FinalTotal)
}

func TestRecalculateTotalsKeepsStoredPercentage(t *testing.T) {
	o := twoLineOrder()
	o.WaiterPercentage = 12
	o.RecalculateTotals()

	assert.Equal(t, 4200.0, o.ServiceAmount)
	assert.Equal(t, 39200.0, o.FinalTotal)
}

func TestFormattedOrderNumber(t *testing.T) {
	o := &Order{DailyOrderNumber: 7}
	assert.Equal(t, "#007", o.FormattedOrderNumber())

	o.DailyOrderNumber = 123
	assert.Equal(t, "#123", o.FormattedOrderNumber())

	o.DailyOrderNumber = 1234
	assert.Equal(t, "#1234", o.FormattedOrderNumber())

	legacy := &Order{ID: primitive.NewObjectID()}
	got := legacy.FormattedOrderNumber()
	assert.Len(t, got, 7)
	assert.Equal(t, "#", got[:1])
}

func TestItemModificationWindow(t *testing.T) {
	o := &Order{}
	for _, status := range []string{OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusServed} {
		o.Status = status
		assert.True(t, o.CanModifyItems(), status)
		assert.True(t, o.CanCancelItem(), status)
	}

	o.Status = OrderStatusCompleted
	assert.False(t, o.CanModifyItems())
	assert.True(t, o.CanCancelItem(), "corrections are allowed after close")

	o.Status = OrderStatusPaid
	assert.False(t, o.CanModifyItems())
	assert.False(t, o.CanCancelItem(), "paid orders are frozen")
}

func TestCloseAndPayWindows(t *testing.T) {
	o := &Order{Status: OrderStatusServed}
	assert.True(t, o.CanClose())
	assert.False(t, o.CanPay())

	o.Status = OrderStatusCompleted
	assert.False(t, o.CanClose())
	assert.True(t, o.CanPay())

	o.Status = "pending_payment"
	assert.True(t, o.CanPay())

	o.Status = OrderStatusPaid
	assert.False(t, o.CanClose())
	assert.False(t, o.CanPay())

	o.Status = OrderStatusCancelled
	assert.False(t, o.CanClose())
}

func TestFindItem(t *testing.T) {
	o := twoLineOrder()
	assert.Equal(t, 0, o.FindItem(o.Items[0].FoodID))
	assert.Equal(t, 1, o.FindItem(o.Items[1].FoodID))
	assert.Equal(t, -1, o.FindItem(primitive.NewObjectID()))
}
