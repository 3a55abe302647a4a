package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountInCentsRoundsInsteadOfTruncating(t *testing.T) {
	cases := []struct {
		amount float64
		cents  int64
	}{
		{19.99, 1999},
		{0.07, 7},
		{150.00, 15000},
		{1234.56, 123456},
		{0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.cents, amountInCents(tc.amount), "amount %v", tc.amount)
	}
}
