package models

import "github.com/google/uuid"

// DashboardSnapshot is one polled view of bot statistics. The backend is
// authoritative; a snapshot is never written back.
type DashboardSnapshot struct {
	TotalProfit           float64 `json:"totalProfit"`
	CompletedCycles       int     `json:"completedCycles"`
	WinRate               float64 `json:"winRate"`
	AvgCycleProfit        float64 `json:"avgCycleProfit"`
	BestCycleProfit       float64 `json:"bestCycleProfit"`
	WorstCycleProfit      float64 `json:"worstCycleProfit"`
	TotalInvested         float64 `json:"totalInvested"`
	ROIPct                float64 `json:"roiPct"`
	AvgCycleDurationHours float64 `json:"avgCycleDurationHours"`
	LastPrice             float64 `json:"lastPrice"`
	PriceChange24hPct     float64 `json:"priceChange24hPct"`

	CurrentCycle *CurrentCycle `json:"currentCycle,omitempty"`
}

// CurrentCycle describes the open cycle being tracked, if any.
type CurrentCycle struct {
	CycleID            uuid.UUID `json:"cycleId"`
	Status             string    `json:"status"`
	FilledSafetyOrders int       `json:"filledSafetyOrders"`
	AveragePrice       float64   `json:"averagePrice"`
	TakeProfitPrice    float64   `json:"takeProfitPrice"`
	EffectiveTPPct     float64   `json:"effectiveTpPct"`
	TotalVolume        float64   `json:"totalVolume"`
	TotalSpent         float64   `json:"totalSpent"`
	UnrealizedProfit   float64   `json:"unrealizedProfit"`
	ExpectedProfit     float64   `json:"expectedProfit"`
	AccumulatedDust    float64   `json:"accumulatedDust"`
	MarketPrice        float64   `json:"marketPrice"`
}

// TrailingStats is the trailing take-profit view, polled independently
// of the main snapshot.
type TrailingStats struct {
	Enabled               bool    `json:"enabled"`
	CallbackPct           float64 `json:"callbackPct"`
	MinProfitPct          float64 `json:"minProfitPct"`
	CompletedWithTrailing int     `json:"completedWithTrailing"`
	AvgExtraProfitPct     float64 `json:"avgExtraProfitPct"`

	Current *TrailingCycle `json:"current,omitempty"`
}

// TrailingCycle is the in-progress trailing record of the open cycle.
type TrailingCycle struct {
	Active             bool    `json:"active"`
	ActivationPrice    float64 `json:"activationPrice"`
	MaxPriceTracked    float64 `json:"maxPriceTracked"`
	CurrentTPPrice     float64 `json:"currentTpPrice"`
	PotentialProfitPct float64 `json:"potentialProfitPct"`
}

// PriceDirection is the movement of the live price relative to the
// previously observed one.
type PriceDirection int

const (
	PriceNeutral PriceDirection = iota
	PriceUp
	PriceDown
)

func (d PriceDirection) String() string {
	switch d {
	case PriceUp:
		return "up"
	case PriceDown:
		return "down"
	default:
		return "neutral"
	}
}
