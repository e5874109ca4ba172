package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "50.00", "50", false},
		{"dollar prefix", "$433.96", "433.96", false},
		{"thousands", "$1,234.56", "1234.56", false},
		{"code suffix", "12.00 USD", "12", false},
		{"negative", "-12.50", "-12.5", false},
		{"explicit plus", "+7.25", "7.25", false},
		{"empty", "  ", "", true},
		{"garbage", "twelve", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "50.00", Format(decimal.NewFromInt(50)))
	assert.Equal(t, "-12.50", Format(decimal.RequireFromString("-12.5")))
	assert.Equal(t, "1234.57", Format(decimal.RequireFromString("1234.567")))
}

func TestSum(t *testing.T) {
	total := Sum(
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("0.20"),
		decimal.RequireFromString("-0.05"),
	)
	assert.Equal(t, "0.25", Format(total))
	assert.True(t, Sum().IsZero())
}

func TestNewFromDecimal(t *testing.T) {
	m := NewFromDecimal(decimal.RequireFromString("45.005"), USD)
	assert.Equal(t, int64(4501), m.Amount())
	assert.Equal(t, USD, m.Currency())

	fallback := NewFromDecimal(decimal.NewFromInt(1), "XXX-unknown")
	assert.Equal(t, USD, fallback.Currency())
}

func TestMoney_Display(t *testing.T) {
	assert.Equal(t, "$1,234.56", New(123456, USD).Display())
	assert.Equal(t, "$0.00", (*Money)(nil).Display())
	assert.Equal(t, "1234.56", New(123456, USD).String())
}

func TestMoney_AddAndNegate(t *testing.T) {
	a := New(1000, USD)
	b := New(250, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount())

	neg := sum.Negate()
	assert.True(t, neg.IsNegative())
	assert.Equal(t, "-12.50", neg.String())

	_, err = a.Add(New(100, EUR))
	assert.Error(t, err)
}

func TestTestDataGenerator_Reproducible(t *testing.T) {
	a := NewTestDataGeneratorWithSeed(42).Receipts(USD, 5)
	b := NewTestDataGeneratorWithSeed(42).Receipts(USD, 5)

	require.Len(t, a, 5)
	for i := range a {
		assert.Equal(t, a[i].Vendor, b[i].Vendor)
		assert.Equal(t, a[i].Amount.Amount(), b[i].Amount.Amount())
		assert.Equal(t, a[i].Date, b[i].Date)
		assert.Contains(t, a[i].Text(), "Total: $")
	}
}
