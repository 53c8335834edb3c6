// Package app contains the pool engine and port definitions for the AMM
// context.
package app

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenBook is the token balance/allowance interface the engine settles
// against. Deposits are pull-payments: the caller pre-approves the engine
// vault and the engine pulls via TransferFrom. Token-level failures
// (insufficient balance or allowance) propagate to engine callers verbatim.
type TokenBook interface {
	// BalanceOf returns owner's balance of token.
	BalanceOf(token, owner common.Address) *uint256.Int

	// Allowance returns what spender may pull from owner.
	Allowance(token, owner, spender common.Address) *uint256.Int

	// Approve sets spender's allowance from owner.
	Approve(token, owner, spender common.Address, amount *uint256.Int) error

	// Transfer moves tokens between accounts.
	Transfer(token, from, to common.Address, amount *uint256.Int) error

	// TransferFrom moves tokens from owner to recipient on behalf of
	// spender, consuming allowance.
	TransferFrom(token, owner, spender, to common.Address, amount *uint256.Int) error

	// Unwrap redeems owner's wrapped-native tokens for the native asset.
	Unwrap(token, owner common.Address, amount *uint256.Int) error
}
