package models

import "fmt"

// MinTotalBudget is the smallest budget the backend accepts, in USDT.
const MinTotalBudget = 10.0

// Configuration is the full set of operator-supplied strategy parameters.
// It is persisted verbatim to the local store when a bot is started, so
// a later session can resume observing the running bot.
type Configuration struct {
	APIKey              string  `json:"apiKey"`
	APISecret           string  `json:"apiSecret"`
	Symbol              string  `json:"symbol"`
	TotalBudget         float64 `json:"totalBudget"`
	GridLengthPct       float64 `json:"gridLengthPct"`
	FirstOrderOffsetPct float64 `json:"firstOrderOffsetPct"`
	SafetyOrdersCount   int     `json:"safetyOrdersCount"`
	VolumeScalePct      float64 `json:"volumeScalePct"`
	// PriceStepPct is the grid shift threshold: how far the price must
	// run away from the ladder before the backend re-anchors it.
	PriceStepPct         float64 `json:"priceStepPct"`
	TakeProfitPct        float64 `json:"takeProfitPct"`
	TrailingEnabled      bool    `json:"trailingEnabled"`
	TrailingCallbackPct  float64 `json:"trailingCallbackPct"`
	TrailingMinProfitPct float64 `json:"trailingMinProfitPct"`
}

// ValidationError describes a single rejected configuration field. It is
// returned as a value next to the offending field, never propagated as a
// transport failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration synchronously, before any network
// call. freeBalance is the last known free quote balance; pass nil when
// no balance has been fetched yet and the budget-vs-balance check is
// skipped.
func (c *Configuration) Validate(freeBalance *float64) []ValidationError {
	var errs []ValidationError

	if c.APIKey == "" {
		errs = append(errs, ValidationError{"apiKey", "exchange API key is required"})
	}
	if c.APISecret == "" {
		errs = append(errs, ValidationError{"apiSecret", "exchange API secret is required"})
	}
	if c.Symbol == "" {
		errs = append(errs, ValidationError{"symbol", "market symbol is required"})
	}
	if c.TotalBudget < MinTotalBudget {
		errs = append(errs, ValidationError{"totalBudget",
			fmt.Sprintf("budget must be at least %.0f USDT", MinTotalBudget)})
	}
	if freeBalance != nil && c.TotalBudget > *freeBalance {
		errs = append(errs, ValidationError{"totalBudget",
			fmt.Sprintf("budget exceeds free balance of %.2f USDT", *freeBalance)})
	}
	if c.GridLengthPct <= 0 {
		errs = append(errs, ValidationError{"gridLengthPct", "grid length must be positive"})
	}
	if c.FirstOrderOffsetPct < 0 {
		errs = append(errs, ValidationError{"firstOrderOffsetPct", "first order offset cannot be negative"})
	}
	if c.SafetyOrdersCount < 1 {
		errs = append(errs, ValidationError{"safetyOrdersCount", "at least one safety order is required"})
	}
	if c.VolumeScalePct < 0 {
		errs = append(errs, ValidationError{"volumeScalePct", "volume scale cannot be negative"})
	}
	if c.TakeProfitPct <= 0 {
		errs = append(errs, ValidationError{"takeProfitPct", "take profit must be positive"})
	}
	if c.TrailingEnabled {
		if c.TrailingCallbackPct <= 0 {
			errs = append(errs, ValidationError{"trailingCallbackPct", "trailing callback must be positive"})
		}
		if c.TrailingMinProfitPct < 0 {
			errs = append(errs, ValidationError{"trailingMinProfitPct", "trailing minimum profit cannot be negative"})
		}
	}

	return errs
}
