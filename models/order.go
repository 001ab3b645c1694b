package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicom/sora-padval-b/utils"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCompleted = "completed"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

type OrderItem struct {
	FoodID       primitive.ObjectID `bson:"food_id" json:"food_id"`
	Name         string             `bson:"name" json:"name"`
	Price        float64            `bson:"price" json:"price"` // catalog price snapshot at commit time
	Quantity     float64            `bson:"quantity" json:"quantity"`
	Unit         string             `bson:"unit,omitempty" json:"unit,omitempty"`
	Total        float64            `bson:"total" json:"total"`
	CategoryName string             `bson:"category_name,omitempty" json:"category_name,omitempty"`
	PrinterIP    string             `bson:"printer_ip,omitempty" json:"printer_ip,omitempty"`
	PrinterName  string             `bson:"printer_name,omitempty" json:"printer_name,omitempty"`
}

// CancelledItem is an append-only audit entry; cancellations never rewrite
// history, they add to it.
type CancelledItem struct {
	FoodID            primitive.ObjectID `bson:"food_id" json:"food_id"`
	Name              string             `bson:"name" json:"name"`
	Price             float64            `bson:"price" json:"price"`
	CancelledQuantity float64            `bson:"cancelled_quantity" json:"cancelled_quantity"`
	CancelledAmount   float64            `bson:"cancelled_amount" json:"cancelled_amount"`
	Reason            string             `bson:"reason" json:"reason"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelledBy       primitive.ObjectID `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CancelledByName   string             `bson:"cancelled_by_name,omitempty" json:"cancelled_by_name,omitempty"`
	CancelledAt       time.Time          `bson:"cancelled_at" json:"cancelled_at"`
}

type MixedPaymentDetails struct {
	CashAmount   float64   `bson:"cash_amount" json:"cashAmount"`
	CardAmount   float64   `bson:"card_amount" json:"cardAmount"`
	TotalAmount  float64   `bson:"total_amount" json:"totalAmount"`
	ChangeAmount float64   `bson:"change_amount" json:"changeAmount"`
	CashPercent  string    `bson:"cash_percentage" json:"cash_percentage"`
	CardPercent  string    `bson:"card_percentage" json:"card_percentage"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
}

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DailyOrderNumber int                `bson:"daily_order_number" json:"daily_order_number"`
	OrderDate        string             `bson:"order_date" json:"order_date"` // YYYY-MM-DD
	TableID          primitive.ObjectID `bson:"table_id" json:"table_id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items            []OrderItem        `bson:"items" json:"items"`
	Status           string             `bson:"status" json:"status"`

	TotalPrice       float64 `bson:"total_price" json:"total_price"` // subtotal
	WaiterPercentage float64 `bson:"waiter_percentage" json:"waiter_percentage"`
	ServiceAmount    float64 `bson:"service_amount" json:"service_amount"`
	TaxAmount        float64 `bson:"tax_amount" json:"tax_amount"`
	FinalTotal       float64 `bson:"final_total" json:"final_total"`

	CancelledItems []CancelledItem `bson:"cancelled_items,omitempty" json:"cancelled_items,omitempty"`

	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletedBy *primitive.ObjectID `bson:"completed_by,omitempty" json:"completed_by,omitempty"`
	ClosedAt    *time.Time          `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	PaidAt      *time.Time          `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	PaidBy      *primitive.ObjectID `bson:"paid_by,omitempty" json:"paid_by,omitempty"`

	PaymentMethod       string               `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	PaymentAmount       float64              `bson:"payment_amount,omitempty" json:"payment_amount,omitempty"`
	ChangeAmount        float64              `bson:"change_amount,omitempty" json:"change_amount,omitempty"`
	MixedPaymentDetails *MixedPaymentDetails `bson:"mixed_payment_details,omitempty" json:"mixed_payment_details,omitempty"`

	ReceiptPrinted   bool                `bson:"receipt_printed" json:"receipt_printed"`
	ReceiptPrintedAt *time.Time          `bson:"receipt_printed_at,omitempty" json:"receipt_printed_at,omitempty"`
	ReceiptPrintedBy *primitive.ObjectID `bson:"receipt_printed_by,omitempty" json:"receipt_printed_by,omitempty"`
	KassirNotes      string              `bson:"kassir_notes,omitempty" json:"kassir_notes,omitempty"`

	TableNumber string    `bson:"table_number,omitempty" json:"table_number,omitempty"`
	WaiterName  string    `bson:"waiter_name,omitempty" json:"waiter_name,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// FormattedOrderNumber is the human-facing daily counter, e.g. "#007".
func (o *Order) FormattedOrderNumber() string {
	if o.DailyOrderNumber > 0 {
		return fmt.Sprintf("#%03d", o.DailyOrderNumber)
	}
	if !o.ID.IsZero() {
		hex := o.ID.Hex()
		return "#" + hex[len(hex)-6:]
	}
	return "#"
}

// RecalculateTotals rebuilds subtotal/service/final from the current item
// lines using the order's stored waiter percentage. Used after cancellation;
// creation and addItems keep their own incremental arithmetic.
func (o *Order) RecalculateTotals() {
	subtotal := 0.0
	for _, it := range o.Items {
		subtotal += it.Total
	}
	o.TotalPrice = utils.RoundMoney(subtotal)
	o.ServiceAmount = utils.ServiceAmount(o.TotalPrice, o.WaiterPercentage)
	o.FinalTotal = utils.RoundMoney(o.TotalPrice + o.ServiceAmount + o.TaxAmount)
}

// CanModifyItems reports whether new lines may still be added.
func (o *Order) CanModifyItems() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusServed:
		return true
	}
	return false
}

// CanCancelItem additionally allows completed orders: corrections are
// accepted after close but never after payment.
func (o *Order) CanCancelItem() bool {
	return o.CanModifyItems() || o.Status == OrderStatusCompleted
}

// CanClose refuses terminal states.
func (o *Order) CanClose() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusPaid, OrderStatusCancelled:
		return false
	}
	return true
}

// CanPay permits payment only against a closed order. "pending_payment" is a
// legacy status emitted by older clients when a paid order was re-opened.
func (o *Order) CanPay() bool {
	return o.Status == OrderStatusCompleted || o.Status == "pending_payment"
}

// FindItem returns the index of the line for a food id, or -1.
func (o *Order) FindItem(foodID primitive.ObjectID) int {
	for i, it := range o.Items {
		if it.FoodID == foodID {
			return i
		}
	}
	return -1
}
