package utils

import "math"

// RoundMoney rounds to 2 decimal places (one tiyin).
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundQuantity rounds to 3 decimal places, the precision stock is kept in
// for kg/litr foods.
func RoundQuantity(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ServiceAmount computes the waiter/service fee for a subtotal.
func ServiceAmount(subtotal, percent float64) float64 {
	return RoundMoney(subtotal * percent / 100)
}
