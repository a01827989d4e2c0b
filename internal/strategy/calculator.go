package strategy

import (
	"fmt"

	"dca-grid-console/internal/models"
)

// Pure derivations of the concrete order plan from a Configuration.
// Nothing here does I/O or keeps state; callers recompute on every
// relevant input change instead of caching.

// GridRange is the price band the ladder occupies.
type GridRange struct {
	Min float64
	Max float64
}

// Order is one rung of the planned ladder.
type Order struct {
	Price  float64
	Volume float64 // quote currency committed at this rung
}

// BaseOrderSize returns the quote volume of the first order. Each
// successive order is scaled by (1 + VolumeScalePct/100) over the
// previous one, and the whole ladder must consume exactly the budget:
// the budget is divided by the total unit weight of the ladder, the
// geometric series starting at 1.
func BaseOrderSize(cfg *models.Configuration) float64 {
	if cfg.TotalBudget <= 0 {
		return 0
	}

	count := cfg.SafetyOrdersCount
	if count < 1 {
		count = 1
	}

	scale := 1 + cfg.VolumeScalePct/100
	weight := 0.0
	term := 1.0
	for i := 0; i < count; i++ {
		weight += term
		term *= scale
	}

	return cfg.TotalBudget / weight
}

// GridRangeFor returns the price band of the ladder: the upper bound is
// the live price shifted down by the first-order offset, the lower
// bound is the upper bound shifted down by the grid length. Both
// degrade to 0 when there is no live price yet.
func GridRangeFor(livePrice float64, cfg *models.Configuration) GridRange {
	if livePrice == 0 {
		return GridRange{}
	}

	max := livePrice * (1 - cfg.FirstOrderOffsetPct/100)
	min := max * (1 - cfg.GridLengthPct/100)
	return GridRange{Min: min, Max: max}
}

// RiskRewardRatio renders take-profit against grid depth as "1:x".
// A zero grid length yields "0:0" rather than dividing by zero.
func RiskRewardRatio(cfg *models.Configuration) string {
	if cfg.GridLengthPct == 0 {
		return "0:0"
	}
	return fmt.Sprintf("1:%.2f", cfg.TakeProfitPct/cfg.GridLengthPct)
}

// OrderLadder lays out the concrete orders the parameters imply: the
// first order at the top of the band and the rest spaced evenly down to
// the bottom, each scaled in volume over the previous. Display only;
// the backend places the real orders. Returns nil when there is no
// live price.
func OrderLadder(livePrice float64, cfg *models.Configuration) []Order {
	if livePrice == 0 {
		return nil
	}

	count := cfg.SafetyOrdersCount
	if count < 1 {
		count = 1
	}

	band := GridRangeFor(livePrice, cfg)
	step := 0.0
	if count > 1 {
		step = (band.Max - band.Min) / float64(count-1)
	}

	volume := BaseOrderSize(cfg)
	scale := 1 + cfg.VolumeScalePct/100

	orders := make([]Order, 0, count)
	for i := 0; i < count; i++ {
		orders = append(orders, Order{
			Price:  band.Max - step*float64(i),
			Volume: volume,
		})
		volume *= scale
	}
	return orders
}
