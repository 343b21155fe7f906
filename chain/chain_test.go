package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFamilyOf(t *testing.T) {
	require.Equal(t, FamilyEthereum, FamilyOf(Mainnet))
	require.Equal(t, FamilyEthereum, FamilyOf(Sepolia))
	require.Equal(t, FamilyOptimism, FamilyOf(Base))
	require.Equal(t, FamilyUnknown, FamilyOf(ID(424242)))
}

func TestSpecOf(t *testing.T) {
	spec, err := SpecOf(Mainnet)
	require.NoError(t, err)
	require.Equal(t, uint64(32), spec.SlotsPerEpoch())
	require.Equal(t, uint64(8192), spec.SlotsPerPeriod())

	_, err = SpecOf(ID(424242))
	require.ErrorIs(t, err, ErrUnsupportedChain)
}

func TestPeriodMath(t *testing.T) {
	spec, err := SpecOf(Mainnet)
	require.NoError(t, err)

	tests := []struct {
		slot   uint64
		period uint64
	}{
		{0, 0},
		{8191, 0},
		{8192, 1},
		{16507, 2},
		{1392 * 8192, 1392},
	}
	for _, tt := range tests {
		require.Equal(t, tt.period, spec.PeriodOf(tt.slot))
	}
	require.Equal(t, uint64(1), spec.PeriodOfEpoch(256))
}

func TestForkAt(t *testing.T) {
	spec, err := SpecOf(Mainnet)
	require.NoError(t, err)
	require.Equal(t, ForkPhase0, spec.ForkAt(0))
	require.Equal(t, ForkAltair, spec.ForkAt(74240))
	require.Equal(t, ForkCapella, spec.ForkAt(200000))
	require.Equal(t, ForkElectra, spec.ForkAt(400000))
}

func TestHistoricalOffsetPeriod(t *testing.T) {
	spec, err := SpecOf(Mainnet)
	require.NoError(t, err)
	require.Equal(t, uint64(144896>>8), spec.HistoricalOffsetPeriod())
}
