package models

// Balance is the exchange quote-currency balance checked through the
// backend. Never persisted; re-fetched on credential or budget change.
type Balance struct {
	FreeUSDT  float64 `json:"freeUsdt"`
	TotalUSDT float64 `json:"totalUsdt"`
}
