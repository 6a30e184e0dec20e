package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWei(t *testing.T) {
	require.Equal(t, "1000000000000000000", ParseWei("1000000000000000000").String())
	require.Equal(t, "0", ParseWei("").String())
	require.Equal(t, "0", ParseWei("garbage").String())
	require.Equal(t, "1230000000000000000000", ParseWei("1.23e+21").String())
	require.Equal(t, "1500", ParseWei("1500.9").String())
	require.Equal(t, "-5", ParseWei("-5").String())
	require.Equal(t, "0", ParseWei("Inf").String())
	require.Equal(t, "0", ParseWei("-inf").String())
}

func TestWeiToGRT(t *testing.T) {
	require.InDelta(t, 1.5, GRT("1500000000000000000"), 1e-12)
	require.InDelta(t, 1_000_000, GRT("1000000000000000000000000"), 1e-6)
	require.Equal(t, 0.0, WeiToGRT(nil))
}
