package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"5":          "5.00",
		"999.999":    "1,000.00",
		"170000":     "170,000.00",
		"-5000":      "-5,000.00",
		"1234567.5":  "1,234,567.50",
		"-0.004":     "0.00",
		"100000.125": "100,000.13",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "+250.00", Signed(decimal.NewFromInt(250)))
	assert.Equal(t, "-250.00", Signed(decimal.NewFromInt(-250)))
	assert.Equal(t, "0.00", Signed(decimal.Zero))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "-4.17%", Percent(decimal.RequireFromString("-4.1666")))
}
