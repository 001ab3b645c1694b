package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicom/sora-padval-b/utils"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodClick    = "click"
	PaymentMethodTransfer = "transfer"
	PaymentMethodMixed    = "mixed"
)

var (
	ErrInvalidMethod          = errors.New("invalid payment method")
	ErrInvalidAmount          = errors.New("invalid payment amount")
	ErrInsufficientPayment    = errors.New("payment amount below order total")
	ErrInvalidMixedBreakdown  = errors.New("mixed payment breakdown invalid")
	ErrExactAmountRequired    = errors.New("payment method requires the exact order total")
	ErrMixedPaymentIncomplete = errors.New("mixed payment requires both cash and card amounts")
)

// Payment is the immutable record written next to a paid order. It snapshots
// the order totals so the audit trail survives later order edits.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderID       primitive.ObjectID `bson:"order_id" json:"order_id"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"`
	PaymentAmount float64            `bson:"payment_amount" json:"payment_amount"`
	ChangeAmount  float64            `bson:"change_amount" json:"change_amount"`

	MixedDetails *MixedPaymentDetails `bson:"mixed_payment_details,omitempty" json:"mixed_payment_details,omitempty"`

	OrderTotal      float64            `bson:"order_total" json:"order_total"`
	TableNumber     string             `bson:"table_number" json:"table_number"`
	WaiterName      string             `bson:"waiter_name,omitempty" json:"waiter_name,omitempty"`
	ProcessedBy     primitive.ObjectID `bson:"processed_by" json:"processed_by"`
	ProcessedByName string             `bson:"processed_by_name,omitempty" json:"processed_by_name,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PaymentDate     string             `bson:"payment_date" json:"payment_date"` // YYYY-MM-DD
	Status          string             `bson:"status" json:"status"`             // completed | refunded
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// MixedPaymentInput is the cash+card split as clients send it.
type MixedPaymentInput struct {
	CashAmount   float64 `json:"cashAmount"`
	CardAmount   float64 `json:"cardAmount"`
	TotalAmount  float64 `json:"totalAmount"`
	ChangeAmount float64 `json:"changeAmount"`
}

// PaymentRequest tolerates the two wire shapes clients have historically
// used: flat fields, and the same fields nested under "paymentData". It is
// only ever converted through Normalize; handlers never probe it directly.
type PaymentRequest struct {
	PaymentMethod string             `json:"paymentMethod"`
	PaymentAmount float64            `json:"paymentAmount"`
	ChangeAmount  float64            `json:"changeAmount"`
	MixedPayment  *MixedPaymentInput `json:"mixedPayment"`
	Notes         string             `json:"notes"`

	PaymentData *struct {
		PaymentMethod string             `json:"paymentMethod"`
		PaymentAmount float64            `json:"paymentAmount"`
		ChangeAmount  float64            `json:"changeAmount"`
		MixedPayment  *MixedPaymentInput `json:"mixedPayment"`
		Notes         string             `json:"notes"`
	} `json:"paymentData"`
}

// PaymentIntent is the single normalized internal form.
type PaymentIntent struct {
	Method string
	Amount float64
	Change float64
	Mixed  *MixedPaymentInput
	Notes  string
}

// Normalize maps the accepted external shapes into one intent. Nested
// paymentData values win only where the flat field is absent.
func (r *PaymentRequest) Normalize() PaymentIntent {
	intent := PaymentIntent{
		Method: r.PaymentMethod,
		Amount: r.PaymentAmount,
		Change: r.ChangeAmount,
		Mixed:  r.MixedPayment,
		Notes:  r.Notes,
	}
	if r.PaymentData != nil {
		if intent.Method == "" {
			intent.Method = r.PaymentData.PaymentMethod
		}
		if intent.Amount == 0 {
			intent.Amount = r.PaymentData.PaymentAmount
		}
		if intent.Change == 0 {
			intent.Change = r.PaymentData.ChangeAmount
		}
		if intent.Mixed == nil {
			intent.Mixed = r.PaymentData.MixedPayment
		}
		if intent.Notes == "" {
			intent.Notes = r.PaymentData.Notes
		}
	}
	return intent
}

// ValidPaymentMethod reports whether m is an accepted instrument.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodClick, PaymentMethodTransfer, PaymentMethodMixed:
		return true
	}
	return false
}

// Validate checks the intent against the order's final total and fills in
// the derived amount/change fields. On success the intent carries the exact
// values that will be persisted.
func (pi *PaymentIntent) Validate(finalTotal float64) error {
	if !ValidPaymentMethod(pi.Method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, pi.Method)
	}

	if pi.Method == PaymentMethodMixed {
		if pi.Mixed == nil {
			return ErrMixedPaymentIncomplete
		}
		cash, card := pi.Mixed.CashAmount, pi.Mixed.CardAmount
		if cash <= 0 || card <= 0 {
			return fmt.Errorf("%w: cash=%.2f card=%.2f", ErrMixedPaymentIncomplete, cash, card)
		}
		total := utils.RoundMoney(cash + card)
		if pi.Mixed.TotalAmount != 0 && math.Abs(pi.Mixed.TotalAmount-total) > 0.01 {
			return fmt.Errorf("%w: cash+card=%.2f total=%.2f", ErrInvalidMixedBreakdown, total, pi.Mixed.TotalAmount)
		}
		if total < finalTotal {
			return fmt.Errorf("%w: required %.2f, got %.2f", ErrInsufficientPayment, finalTotal, total)
		}
		pi.Mixed.TotalAmount = total
		pi.Mixed.ChangeAmount = utils.RoundMoney(total - finalTotal)
		pi.Amount = total
		pi.Change = pi.Mixed.ChangeAmount
		return nil
	}

	if pi.Amount <= 0 {
		return fmt.Errorf("%w: %.2f", ErrInvalidAmount, pi.Amount)
	}

	switch pi.Method {
	case PaymentMethodCash:
		if pi.Amount < finalTotal {
			return fmt.Errorf("%w: required %.2f, got %.2f", ErrInsufficientPayment, finalTotal, pi.Amount)
		}
		pi.Change = utils.RoundMoney(pi.Amount - finalTotal)
	default:
		// card / click / transfer are exact-amount instruments
		if math.Abs(pi.Amount-finalTotal) > 1 {
			return fmt.Errorf("%w (%s): required %.2f, got %.2f", ErrExactAmountRequired, pi.Method, finalTotal, pi.Amount)
		}
		pi.Amount = finalTotal
		pi.Change = 0
	}
	return nil
}

// MixedDetails builds the persisted breakdown, including the percentage
// split the receipt shows.
func (pi *PaymentIntent) MixedDetails() *MixedPaymentDetails {
	if pi.Mixed == nil {
		return nil
	}
	d := &MixedPaymentDetails{
		CashAmount:   pi.Mixed.CashAmount,
		CardAmount:   pi.Mixed.CardAmount,
		TotalAmount:  pi.Mixed.TotalAmount,
		ChangeAmount: pi.Mixed.ChangeAmount,
		Timestamp:    time.Now(),
	}
	if d.TotalAmount > 0 {
		d.CashPercent = fmt.Sprintf("%.1f", d.CashAmount/d.TotalAmount*100)
		d.CardPercent = fmt.Sprintf("%.1f", d.CardAmount/d.TotalAmount*100)
	}
	return d
}
