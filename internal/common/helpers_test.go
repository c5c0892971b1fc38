package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.024981836", LamportsToSOL(24981836))
	assert.Equal(t, "1.000000000", LamportsToSOL(LamportsPerSOL))
	assert.Equal(t, "0.000000000", LamportsToSOL(0))
	assert.Equal(t, "12.5", FormatAmount(125, 1))
	assert.Equal(t, "42", FormatAmount(42, 0))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		decimals int
		want     uint64
		wantErr  bool
	}{
		{"0.024981836", 9, 24981836, false},
		{"1", 9, 1_000_000_000, false},
		{" 2.5 ", 9, 2_500_000_000, false},
		{".5", 6, 500_000, false},
		{"1.500000000000", 6, 1_500_000, false},
		{"1.0000001", 6, 0, true},
		{"", 9, 0, true},
		{"-1", 9, 0, true},
		{"1.", 9, 0, true},
		{"1.2.3", 9, 0, true},
		{"abc", 9, 0, true},
		{"18446744073.709551616", 9, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareAmounts(t *testing.T) {
	cmp, err := CompareAmounts("1.5", "1.50", 6)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)

	cmp, err = CompareAmounts("2", "1.999999", 6)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	_, err = CompareAmounts("x", "1", 6)
	assert.Error(t, err)
}
