package chainreg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNetworkChainID(t *testing.T) {
	tests := []struct {
		name       string
		internalID uint
		want       int64
	}{
		{"Ethereum", 0, 1},
		{"BNB Chain", 1, 56},
		{"Polygon", 2, 137},
		{"Avalanche", 3, 43114},
		{"Arbitrum", 4, 42161},
		{"Unmapped falls back to mainnet", 99, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToNetworkChainID(tt.internalID))
			// 重复查询必须幂等
			assert.Equal(t, tt.want, ToNetworkChainID(tt.internalID))
		})
	}
}

func TestSymbolFor(t *testing.T) {
	tests := []struct {
		name    string
		chainID int64
		want    string
	}{
		{"Ethereum", 1, "ETH"},
		{"BNB", 56, "BNB"},
		{"Polygon", 137, "MATIC"},
		{"Avalanche", 43114, "AVAX"},
		{"Arbitrum uses ETH", 42161, "ETH"},
		{"Unknown network", 777, "ETH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SymbolFor(tt.chainID))
		})
	}
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
	}{
		{"1.5 ETH", "1.5", 18, "1500000000000000000"},
		{"Integer amount", "2", 18, "2000000000000000000"},
		{"Small fraction", "0.000000000000000001", 18, "1"},
		{"Six decimals token", "12.34", 6, "12340000"},
		{"Excess precision truncated", "1.0000000000000000019", 18, "1000000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToBaseUnitsInvalid(t *testing.T) {
	_, err := ToBaseUnits("not-a-number", 18)
	assert.Error(t, err)

	_, err = ToBaseUnits("-1", 18)
	assert.Error(t, err)
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	v, err := ToBaseUnits("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1.5", FromBaseUnits(v, 18))

	wei := new(big.Int)
	wei.SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", FromBaseUnits(wei, 18))
}
