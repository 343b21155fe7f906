package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLCUQuery(t *testing.T) {
	start, count, err := parseLCUQuery("period_store/lcu?start=1392&count=2")
	require.NoError(t, err)
	require.Equal(t, uint64(1392), start)
	require.Equal(t, uint64(2), count)

	for _, bad := range []string{
		"period_store/other?start=1&count=1",
		"period_store/lcu?count=1",
		"period_store/lcu?start=1",
		"period_store/lcu?start=1&count=0",
	} {
		_, _, err := parseLCUQuery(bad)
		require.Error(t, err, bad)
	}
}

func TestJSONMarshalParams(t *testing.T) {
	raw, err := jsonMarshalParams(uint64(7))
	require.NoError(t, err)
	require.Equal(t, "[7]", string(raw))
}
