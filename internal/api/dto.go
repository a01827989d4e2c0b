package api

import (
	"dca-grid-console/internal/models"

	"github.com/google/uuid"
)

// Wire DTOs mirror the backend's snake_case schemas. The mapping
// between wire and internal shapes is spelled out field by field per
// DTO, recursively through the nested records, instead of a reflective
// key-case walk.

type tokenPairWire struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

type credentialsWire struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequestWire struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequestWire struct {
	RefreshToken string `json:"refresh_token"`
}

type botConfigWire struct {
	BinanceAPIKey         string  `json:"binance_api_key"`
	BinanceAPISecret      string  `json:"binance_api_secret"`
	Symbol                string  `json:"symbol"`
	TotalBudget           float64 `json:"total_budget"`
	GridLengthPct         float64 `json:"grid_length_pct"`
	FirstOrderOffsetPct   float64 `json:"first_order_offset_pct"`
	SafetyOrdersCount     int     `json:"safety_orders_count"`
	VolumeScalePct        float64 `json:"volume_scale_pct"`
	GridShiftThresholdPct float64 `json:"grid_shift_threshold_pct"`
	TakeProfitPct         float64 `json:"take_profit_pct"`
	TrailingEnabled       bool    `json:"trailing_enabled"`
	TrailingCallbackPct   float64 `json:"trailing_callback_pct"`
	TrailingMinProfitPct  float64 `json:"trailing_min_profit_pct"`
}

type botConfigResponseWire struct {
	ID       uuid.UUID `json:"id"`
	IsActive bool      `json:"is_active"`
}

type startResponseWire struct {
	CycleID uuid.UUID `json:"cycle_id"`
}

type cycleWire struct {
	CycleID            uuid.UUID `json:"cycle_id"`
	Status             string    `json:"status"`
	FilledOrdersCount  int       `json:"filled_orders_count"`
	AveragePrice       float64   `json:"average_price"`
	TPOrderPrice       *float64  `json:"tp_order_price"`
	EffectiveTPPct     *float64  `json:"effective_tp_pct"`
	ExpectedProfit     *float64  `json:"expected_profit"`
	TPOrderVolume      float64   `json:"tp_order_volume"`
	TotalQuoteSpent    float64   `json:"total_quote_spent"`
	CurrentMarketPrice *float64  `json:"current_market_price"`
	UnrealizedProfit   *float64  `json:"unrealized_profit"`
	AccumulatedDust    *float64  `json:"accumulated_dust"`
}

type statsWire struct {
	TotalProfitUSDT       float64    `json:"total_profit_usdt"`
	CompletedCycles       int        `json:"completed_cycles"`
	TotalInvested         *float64   `json:"total_invested"`
	ROIPct                *float64   `json:"roi_pct"`
	WinRate               *float64   `json:"win_rate"`
	AvgProfitPerCycle     *float64   `json:"avg_profit_per_cycle"`
	AvgCycleDurationHours *float64   `json:"avg_cycle_duration_hours"`
	BestCycleProfit       *float64   `json:"best_cycle_profit"`
	WorstCycleProfit      *float64   `json:"worst_cycle_profit"`
	LastPrice             *float64   `json:"last_price"`
	PriceChange24hPct     *float64   `json:"price_change_24h_pct"`
	CurrentCycle          *cycleWire `json:"current_cycle"`
}

type trailingCycleWire struct {
	Active             bool     `json:"active"`
	ActivationPrice    *float64 `json:"activation_price"`
	MaxPriceTracked    *float64 `json:"max_price_tracked"`
	CurrentTPPrice     *float64 `json:"current_tp_price"`
	PotentialProfitPct *float64 `json:"potential_profit_pct"`
}

type trailingStatsWire struct {
	Enabled               bool               `json:"enabled"`
	CallbackPct           *float64           `json:"callback_pct"`
	MinProfitPct          *float64           `json:"min_profit_pct"`
	CompletedWithTrailing *int               `json:"completed_with_trailing"`
	AvgExtraProfitPct     *float64           `json:"avg_extra_profit_pct"`
	Current               *trailingCycleWire `json:"current"`
}

type balanceRequestWire struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

type balanceWire struct {
	FreeUSDT  float64 `json:"free_usdt"`
	TotalUSDT float64 `json:"total_usdt"`
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func orZeroInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func sessionFromWire(w *tokenPairWire) models.Session {
	return models.Session{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
	}
}

func configToWire(c *models.Configuration) *botConfigWire {
	return &botConfigWire{
		BinanceAPIKey:         c.APIKey,
		BinanceAPISecret:      c.APISecret,
		Symbol:                c.Symbol,
		TotalBudget:           c.TotalBudget,
		GridLengthPct:         c.GridLengthPct,
		FirstOrderOffsetPct:   c.FirstOrderOffsetPct,
		SafetyOrdersCount:     c.SafetyOrdersCount,
		VolumeScalePct:        c.VolumeScalePct,
		GridShiftThresholdPct: c.PriceStepPct,
		TakeProfitPct:         c.TakeProfitPct,
		TrailingEnabled:       c.TrailingEnabled,
		TrailingCallbackPct:   c.TrailingCallbackPct,
		TrailingMinProfitPct:  c.TrailingMinProfitPct,
	}
}

func configFromWire(w *botConfigWire) models.Configuration {
	return models.Configuration{
		APIKey:               w.BinanceAPIKey,
		APISecret:            w.BinanceAPISecret,
		Symbol:               w.Symbol,
		TotalBudget:          w.TotalBudget,
		GridLengthPct:        w.GridLengthPct,
		FirstOrderOffsetPct:  w.FirstOrderOffsetPct,
		SafetyOrdersCount:    w.SafetyOrdersCount,
		VolumeScalePct:       w.VolumeScalePct,
		PriceStepPct:         w.GridShiftThresholdPct,
		TakeProfitPct:        w.TakeProfitPct,
		TrailingEnabled:      w.TrailingEnabled,
		TrailingCallbackPct:  w.TrailingCallbackPct,
		TrailingMinProfitPct: w.TrailingMinProfitPct,
	}
}

func configRecordFromWire(w *botConfigResponseWire) models.BotConfigRecord {
	return models.BotConfigRecord{ID: w.ID, IsActive: w.IsActive}
}

func cycleFromWire(w *cycleWire) *models.CurrentCycle {
	if w == nil {
		return nil
	}
	return &models.CurrentCycle{
		CycleID:            w.CycleID,
		Status:             w.Status,
		FilledSafetyOrders: w.FilledOrdersCount,
		AveragePrice:       w.AveragePrice,
		TakeProfitPrice:    orZero(w.TPOrderPrice),
		EffectiveTPPct:     orZero(w.EffectiveTPPct),
		TotalVolume:        w.TPOrderVolume,
		TotalSpent:         w.TotalQuoteSpent,
		UnrealizedProfit:   orZero(w.UnrealizedProfit),
		ExpectedProfit:     orZero(w.ExpectedProfit),
		AccumulatedDust:    orZero(w.AccumulatedDust),
		MarketPrice:        orZero(w.CurrentMarketPrice),
	}
}

func snapshotFromWire(w *statsWire) *models.DashboardSnapshot {
	snap := &models.DashboardSnapshot{
		TotalProfit:           w.TotalProfitUSDT,
		CompletedCycles:       w.CompletedCycles,
		WinRate:               orZero(w.WinRate),
		AvgCycleProfit:        orZero(w.AvgProfitPerCycle),
		BestCycleProfit:       orZero(w.BestCycleProfit),
		WorstCycleProfit:      orZero(w.WorstCycleProfit),
		TotalInvested:         orZero(w.TotalInvested),
		ROIPct:                orZero(w.ROIPct),
		AvgCycleDurationHours: orZero(w.AvgCycleDurationHours),
		LastPrice:             orZero(w.LastPrice),
		PriceChange24hPct:     orZero(w.PriceChange24hPct),
		CurrentCycle:          cycleFromWire(w.CurrentCycle),
	}
	// The backend reports the live price per open cycle; promote it when
	// no top-level price came through.
	if snap.LastPrice == 0 && snap.CurrentCycle != nil {
		snap.LastPrice = snap.CurrentCycle.MarketPrice
	}
	return snap
}

func trailingFromWire(w *trailingStatsWire) *models.TrailingStats {
	ts := &models.TrailingStats{
		Enabled:               w.Enabled,
		CallbackPct:           orZero(w.CallbackPct),
		MinProfitPct:          orZero(w.MinProfitPct),
		CompletedWithTrailing: orZeroInt(w.CompletedWithTrailing),
		AvgExtraProfitPct:     orZero(w.AvgExtraProfitPct),
	}
	if w.Current != nil {
		ts.Current = &models.TrailingCycle{
			Active:             w.Current.Active,
			ActivationPrice:    orZero(w.Current.ActivationPrice),
			MaxPriceTracked:    orZero(w.Current.MaxPriceTracked),
			CurrentTPPrice:     orZero(w.Current.CurrentTPPrice),
			PotentialProfitPct: orZero(w.Current.PotentialProfitPct),
		}
	}
	return ts
}

func balanceFromWire(w *balanceWire) models.Balance {
	return models.Balance{FreeUSDT: w.FreeUSDT, TotalUSDT: w.TotalUSDT}
}
