package handler_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func decimalSum(t *testing.T, values ...string) string {
	t.Helper()
	sum := decimal.Zero
	for _, v := range values {
		d, err := decimal.NewFromString(v)
		require.NoError(t, err)
		sum = sum.Add(d)
	}
	return sum.StringFixed(2)
}
