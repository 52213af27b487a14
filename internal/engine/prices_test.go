package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTargetPrice(t *testing.T) {
	require.Equal(t, 115.0, TargetPrice(100, 0.15))
	require.Equal(t, 38.26, TargetPrice(33.27, 0.15))
}

func TestStopPrice(t *testing.T) {
	require.Equal(t, 92.0, StopPrice(100, 0.08))
	require.Equal(t, 30.61, StopPrice(33.27, 0.08))
}

func TestStopBelowCostBelowTarget(t *testing.T) {
	cost := 47.11
	require.Less(t, StopPrice(cost, 0.08), cost)
	require.Greater(t, TargetPrice(cost, 0.15), cost)
}

func TestTradeAmount(t *testing.T) {
	require.Equal(t, 1234.0, TradeAmount(100, 12.34))
	require.Equal(t, 0.0, TradeAmount(0, 12.34))
}
