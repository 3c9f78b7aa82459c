package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("valid money", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), BRL)
		require.NoError(t, err)
		assert.Equal(t, "100.5", m.Amount().String())
		assert.Equal(t, BRL, m.Currency())
	})

	t.Run("empty currency rejected", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(10), "")
		assert.Error(t, err)
	})
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("1234.56", BRL)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", m.StringFixed(2))

	_, err = NewMoneyFromString("not-a-number", BRL)
	assert.Error(t, err)
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyBRLFromFloat(100.10)
	b := NewMoneyBRLFromFloat(0.20)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "100.30", sum.StringFixed(2))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, "99.90", diff.StringFixed(2))

	usd := Zero(USD)
	_, err = a.Add(usd)
	assert.Error(t, err, "currency mismatch must be rejected")
	_, err = a.Subtract(usd)
	assert.Error(t, err)
}

func TestMoney_DecimalExactness(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3, no float drift
	a, _ := NewMoneyBRLFromString("0.1")
	b, _ := NewMoneyBRLFromString("0.2")
	sum := a.MustAdd(b)
	expected, _ := NewMoneyBRLFromString("0.3")
	assert.True(t, sum.Equals(expected))
}

func TestMoney_Comparisons(t *testing.T) {
	a := NewMoneyBRLFromFloat(10)
	b := NewMoneyBRLFromFloat(20)

	lt, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, gt)

	assert.True(t, ZeroBRL().IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, a.Negate().IsNegative())
}

func TestMoney_Split(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		parts    int
		expected []string
	}{
		{"even split", "300.00", 3, []string{"100.00", "100.00", "100.00"}},
		{"remainder to last", "100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"two parts odd cent", "0.01", 2, []string{"0.00", "0.01"}},
		{"single part", "55.55", 1, []string{"55.55"}},
		{"ten parts", "100.00", 7, []string{"14.28", "14.28", "14.28", "14.28", "14.28", "14.28", "14.32"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyBRLFromString(tt.amount)
			require.NoError(t, err)

			parts, err := m.Split(tt.parts)
			require.NoError(t, err)
			require.Len(t, parts, tt.parts)

			sum := ZeroBRL()
			for i, p := range parts {
				assert.Equal(t, tt.expected[i], p.StringFixed(2))
				sum = sum.MustAdd(p)
			}
			assert.True(t, sum.Equals(m), "parts must sum exactly to the original amount")
		})
	}

	t.Run("non-positive parts rejected", func(t *testing.T) {
		m := NewMoneyBRLFromFloat(10)
		_, err := m.Split(0)
		assert.Error(t, err)
		_, err = m.Split(-1)
		assert.Error(t, err)
	})
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m, _ := NewMoneyBRLFromString("99.99")
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.99","currency":"BRL"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("42.42"))
	assert.Equal(t, "42.42", m.StringFixed(2))
	assert.Equal(t, DefaultCurrency, m.Currency())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(3.14))
}
