package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFlatFields(t *testing.T) {
	req := PaymentRequest{PaymentMethod: "cash", PaymentAmount: 40000, Notes: "no change needed"}
	intent := req.Normalize()

	assert.Equal(t, "cash", intent.Method)
	assert.Equal(t, 40000.0, intent.Amount)
	assert.Equal(t, "no change needed", intent.Notes)
	assert.Nil(t, intent.Mixed)
}

func TestNormalizeNestedPaymentData(t *testing.T) {
	req := PaymentRequest{}
	req.PaymentData = &struct {
		PaymentMethod string             `json:"paymentMethod"`
		PaymentAmount float64            `json:"paymentAmount"`
		ChangeAmount  float64            `json:"changeAmount"`
		MixedPayment  *MixedPaymentInput `json:"mixedPayment"`
		Notes         string             `json:"notes"`
	}{
		PaymentMethod: "card",
		PaymentAmount: 38500,
	}

	intent := req.Normalize()
	assert.Equal(t, "card", intent.Method)
	assert.Equal(t, 38500.0, intent.Amount)
}

func TestNormalizeFlatWinsOverNested(t *testing.T) {
	req := PaymentRequest{PaymentMethod: "cash", PaymentAmount: 50000}
	req.PaymentData = &struct {
		PaymentMethod string             `json:"paymentMethod"`
		PaymentAmount float64            `json:"paymentAmount"`
		ChangeAmount  float64            `json:"changeAmount"`
		MixedPayment  *MixedPaymentInput `json:"mixedPayment"`
		Notes         string             `json:"notes"`
	}{
		PaymentMethod: "card",
		PaymentAmount: 38500,
	}

	intent := req.Normalize()
	assert.Equal(t, "cash", intent.Method)
	assert.Equal(t, 50000.0, intent.Amount)
}

func TestValidateCashComputesChange(t *testing.T) {
	intent := PaymentIntent{Method: PaymentMethodCash, Amount: 40000}
	require.NoError(t, intent.Validate(38500))
	assert.Equal(t, 1500.0, intent.Change)
}

func TestValidateCashRejectsUnderpayment(t *testing.T) {
	intent := PaymentIntent{Method: PaymentMethodCash, Amount: 38000}
	err := intent.Validate(38500)
	assert.ErrorIs(t, err, ErrInsufficientPayment)
}

func TestValidateCardRequiresExactAmount(t *testing.T) {
	intent := PaymentIntent{Method: PaymentMethodCard, Amount: 38500}
	require.NoError(t, intent.Validate(38500))
	assert.Equal(t, 0.0, intent.Change)

	// one-unit rounding slack is tolerated, the stored amount snaps to total
	intent = PaymentIntent{Method: PaymentMethodCard, Amount: 38500.5}
	require.NoError(t, intent.Validate(38500))
	assert.Equal(t, 38500.0, intent.Amount)

	intent = PaymentIntent{Method: PaymentMethodCard, Amount: 40000}
	assert.ErrorIs(t, intent.Validate(38500), ErrExactAmountRequired)
}

func TestValidateClickAndTransferAreExact(t *testing.T) {
	for _, method := range []string{PaymentMethodClick, PaymentMethodTransfer} {
		intent := PaymentIntent{Method: method, Amount: 38500}
		require.NoError(t, intent.Validate(38500), method)

		intent = PaymentIntent{Method: method, Amount: 30000}
		assert.Error(t, intent.Validate(38500), method)
	}
}

func TestValidateRejectsUnknownMethod(t *testing.T) {
	intent := PaymentIntent{Method: "crypto", Amount: 38500}
	assert.ErrorIs(t, intent.Validate(38500), ErrInvalidMethod)
}

func TestValidateRejectsNonPositiveAmount(t *testing.T) {
	intent := PaymentIntent{Method: PaymentMethodCash, Amount: 0}
	assert.ErrorIs(t, intent.Validate(38500), ErrInvalidAmount)
}

func TestValidateMixedPayment(t *testing.T) {
	intent := PaymentIntent{
		Method: PaymentMethodMixed,
		Mixed:  &MixedPaymentInput{CashAmount: 20000, CardAmount: 18500},
	}
	require.NoError(t, intent.Validate(38500))

	assert.Equal(t, 38500.0, intent.Amount)
	assert.Equal(t, 0.0, intent.Change)
	assert.Equal(t, 38500.0, intent.Mixed.TotalAmount)
}

func TestValidateMixedOverpaymentYieldsChange(t *testing.T) {
	intent := PaymentIntent{
		Method: PaymentMethodMixed,
		Mixed:  &MixedPaymentInput{CashAmount: 25000, CardAmount: 18500},
	}
	require.NoError(t, intent.Validate(38500))
	assert.Equal(t, 5000.0, intent.Change)
}

func TestValidateMixedRequiresBothParts(t *testing.T) {
	intent := PaymentIntent{Method: PaymentMethodMixed}
	assert.ErrorIs(t, intent.Validate(38500), ErrMixedPaymentIncomplete)

	intent = PaymentIntent{
		Method: PaymentMethodMixed,
		Mixed:  &MixedPaymentInput{CashAmount: 38500, CardAmount: 0},
	}
	assert.ErrorIs(t, intent.Validate(38500), ErrMixedPaymentIncomplete)
}

func TestValidateMixedRejectsShortTotal(t *testing.T) {
	intent := PaymentIntent{
		Method: PaymentMethodMixed,
		Mixed:  &MixedPaymentInput{CashAmount: 10000, CardAmount: 10000},
	}
	assert.ErrorIs(t, intent.Validate(38500), ErrInsufficientPayment)
}

func TestValidateMixedRejectsInconsistentDeclaredTotal(t *testing.T) {
	intent := PaymentIntent{
		Method: PaymentMethodMixed,
		Mixed:  &MixedPaymentInput{CashAmount: 20000, CardAmount: 18500, TotalAmount: 40000},
	}
	assert.ErrorIs(t, intent.Validate(38500), ErrInvalidMixedBreakdown)
}

func TestMixedDetailsPercentages(t *testing.T) {
	intent := PaymentIntent{
		Method: PaymentMethodMixed,
		Mixed:  &MixedPaymentInput{CashAmount: 20000, CardAmount: 18500},
	}
	require.NoError(t, intent.Validate(38500))

	d := intent.MixedDetails()
	require.NotNil(t, d)
	assert.Equal(t, 20000.0, d.CashAmount)
	assert.Equal(t, 18500.0, d.CardAmount)
	assert.Equal(t, "51.9", d.CashPercent)
	assert.Equal(t, "48.1", d.CardPercent)
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range []string{"cash", "card", "click", "transfer", "mixed"} {
		assert.True(t, ValidPaymentMethod(m), m)
	}
	assert.False(t, ValidPaymentMethod(""))
	assert.False(t, ValidPaymentMethod("cheque"))
}
