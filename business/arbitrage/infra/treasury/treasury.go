// Package treasury forwards realized arbitrage profit to the treasury
// account.
package treasury

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	"github.com/dexforge/dexcore/internal/logger"
)

// Sink moves profit from the operator to the treasury through the token
// book.
type Sink struct {
	book     ammapp.TokenBook
	operator common.Address
	treasury common.Address
	log      *logger.Logger
}

// New creates a sink sweeping operator profits to treasury.
func New(book ammapp.TokenBook, operator, treasury common.Address, log *logger.Logger) *Sink {
	return &Sink{
		book:     book,
		operator: operator,
		treasury: treasury,
		log:      log,
	}
}

// Sweep transfers amount of token to the treasury.
func (s *Sink) Sweep(ctx context.Context, token common.Address, amount *uint256.Int) error {
	if err := s.book.Transfer(token, s.operator, s.treasury, amount); err != nil {
		return err
	}
	s.log.Info(ctx, "profit swept",
		"token", token.Hex(),
		"amount", amount.Dec(),
		"treasury", s.treasury.Hex(),
	)
	return nil
}
