// Package domain holds the arbitrage context's core types.
package domain

// Direction says where each leg of a two-leg arbitrage trades.
type Direction int

const (
	// BuySelfSellExternal buys the quote token on the local venue and
	// sells it on the external one. Chosen when the local price is lower.
	BuySelfSellExternal Direction = iota

	// BuyExternalSellSelf buys externally and sells locally.
	BuyExternalSellSelf
)

func (d Direction) String() string {
	switch d {
	case BuySelfSellExternal:
		return "buy_self_sell_external"
	case BuyExternalSellSelf:
		return "buy_external_sell_self"
	default:
		return "unknown"
	}
}
