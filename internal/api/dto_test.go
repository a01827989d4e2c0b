package api

import (
	"testing"

	"dca-grid-console/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConfigWireRoundTrip(t *testing.T) {
	original := models.Configuration{
		APIKey:               "key",
		APISecret:            "secret",
		Symbol:               "BTC/USDT",
		TotalBudget:          1500,
		GridLengthPct:        5,
		FirstOrderOffsetPct:  0.05,
		SafetyOrdersCount:    7,
		VolumeScalePct:       12.5,
		PriceStepPct:         1.5,
		TakeProfitPct:        1.2,
		TrailingEnabled:      true,
		TrailingCallbackPct:  0.8,
		TrailingMinProfitPct: 1.0,
	}

	assert.Equal(t, original, configFromWire(configToWire(&original)))
}

func TestSnapshotFromWire(t *testing.T) {
	price := 42000.5
	dust := 0.00012

	wire := statsWire{
		TotalProfitUSDT: 55.5,
		CompletedCycles: 3,
		CurrentCycle: &cycleWire{
			CycleID:            uuid.New(),
			Status:             "open",
			FilledOrdersCount:  2,
			AveragePrice:       41000,
			TPOrderVolume:      0.005,
			TotalQuoteSpent:    205,
			CurrentMarketPrice: &price,
			AccumulatedDust:    &dust,
		},
	}

	snap := snapshotFromWire(&wire)

	assert.Equal(t, 55.5, snap.TotalProfit)
	assert.Equal(t, 3, snap.CompletedCycles)
	// Omitted aggregates come through as their zero defaults.
	assert.Zero(t, snap.WinRate)
	assert.Zero(t, snap.ROIPct)
	assert.Zero(t, snap.BestCycleProfit)

	if assert.NotNil(t, snap.CurrentCycle) {
		assert.Equal(t, 2, snap.CurrentCycle.FilledSafetyOrders)
		assert.Equal(t, price, snap.CurrentCycle.MarketPrice)
		assert.Equal(t, dust, snap.CurrentCycle.AccumulatedDust)
		// Nullable TP fields degrade to zero.
		assert.Zero(t, snap.CurrentCycle.TakeProfitPrice)
		assert.Zero(t, snap.CurrentCycle.ExpectedProfit)
	}

	// With no top-level price, the open cycle's market price is promoted.
	assert.Equal(t, price, snap.LastPrice)
}

func TestSnapshotFromWireWithoutCycle(t *testing.T) {
	snap := snapshotFromWire(&statsWire{TotalProfitUSDT: 10, CompletedCycles: 1})
	assert.Nil(t, snap.CurrentCycle)
	assert.Zero(t, snap.LastPrice)
}

func TestTrailingFromWire(t *testing.T) {
	callback := 0.8
	activation := 42100.0

	wire := trailingStatsWire{
		Enabled:     true,
		CallbackPct: &callback,
		Current: &trailingCycleWire{
			Active:          true,
			ActivationPrice: &activation,
		},
	}

	ts := trailingFromWire(&wire)
	assert.True(t, ts.Enabled)
	assert.Equal(t, 0.8, ts.CallbackPct)
	assert.Zero(t, ts.MinProfitPct)
	if assert.NotNil(t, ts.Current) {
		assert.True(t, ts.Current.Active)
		assert.Equal(t, activation, ts.Current.ActivationPrice)
		assert.Zero(t, ts.Current.MaxPriceTracked)
	}
}
