package periodstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexGapDetection(t *testing.T) {
	tests := []struct {
		name    string
		periods []uint64
		hasGaps bool
	}{
		{"empty", nil, false},
		{"single", []uint64{5}, false},
		{"contiguous", []uint64{3, 4, 5, 6}, false},
		{"contiguous out of order", []uint64{6, 4, 5, 3}, false},
		{"gap", []uint64{3, 5}, true},
		{"gap filled later stays sticky", []uint64{3, 5, 4}, true},
		{"duplicates", []uint64{2, 2, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndex()
			for _, p := range tt.periods {
				ix.OnPeriodDir(p)
			}
			require.Equal(t, tt.hasGaps, ix.HasGaps())
		})
	}
}

func TestIndexLatest(t *testing.T) {
	ix := NewIndex()
	_, ok := ix.Latest()
	require.Equal(t, false, ok)

	ix.OnPeriodDir(7)
	ix.OnPeriodDir(3)
	latest, ok := ix.Latest()
	require.Equal(t, true, ok)
	require.Equal(t, uint64(7), latest)
}
