package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.56, RoundMoney(10.555))
	assert.Equal(t, 10.55, RoundMoney(10.554))
	assert.Equal(t, 0.0, RoundMoney(0))
	assert.Equal(t, 38500.0, RoundMoney(38500.0000001))
}

func TestRoundQuantity(t *testing.T) {
	assert.Equal(t, 0.5, RoundQuantity(0.5))
	assert.Equal(t, 1.234, RoundQuantity(1.2344))
	assert.Equal(t, 1.235, RoundQuantity(1.2345))
}

func TestServiceAmount(t *testing.T) {
	assert.Equal(t, 3500.0, ServiceAmount(35000, 10))
	assert.Equal(t, 0.0, ServiceAmount(35000, 0))
	assert.Equal(t, 1750.0, ServiceAmount(35000, 5))
}
