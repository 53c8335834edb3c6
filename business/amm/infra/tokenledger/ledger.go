// Package tokenledger is an in-memory token balance and allowance book. It
// backs the pool engine in local and test deployments where no real token
// contracts exist.
package tokenledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/internal/apperror"
)

type accountKey struct {
	token common.Address
	owner common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Ledger tracks balances and allowances per token. Safe for concurrent use.
type Ledger struct {
	mu         sync.Mutex
	balances   map[accountKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int

	// native holds redeemed native-asset balances per owner, credited by
	// Unwrap.
	native map[common.Address]*uint256.Int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:   make(map[accountKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		native:     make(map[common.Address]*uint256.Int),
	}
}

// Mint credits amount of token to owner. Used to seed accounts.
func (l *Ledger) Mint(token, owner common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, owner, amount)
}

// BalanceOf returns owner's balance of token.
func (l *Ledger) BalanceOf(token, owner common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bal, ok := l.balances[accountKey{token, owner}]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// NativeBalanceOf returns owner's redeemed native-asset balance.
func (l *Ledger) NativeBalanceOf(owner common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bal, ok := l.native[owner]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Allowance returns what spender may pull from owner.
func (l *Ledger) Allowance(token, owner, spender common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.allowances[allowanceKey{token, owner, spender}]; ok {
		return new(uint256.Int).Set(a)
	}
	return uint256.NewInt(0)
}

// Approve sets spender's allowance from owner, replacing any prior value.
func (l *Ledger) Approve(token, owner, spender common.Address, amount *uint256.Int) error {
	if amount == nil {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("nil approval amount"))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.allowances[allowanceKey{token, owner, spender}] = new(uint256.Int).Set(amount)
	return nil
}

// Transfer moves tokens between accounts.
func (l *Ledger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(token, from, amount); err != nil {
		return err
	}
	l.credit(token, to, amount)
	return nil
}

// TransferFrom moves tokens from owner to recipient on behalf of spender,
// consuming allowance.
func (l *Ledger) TransferFrom(token, owner, spender, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{token, owner, spender}
	allowed, ok := l.allowances[key]
	if !ok || allowed.Lt(amount) {
		return apperror.New(apperror.CodeInsufficientAllowance,
			apperror.WithContextf("token %s spender %s", token.Hex(), spender.Hex()))
	}
	if err := l.debit(token, owner, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	l.credit(token, to, amount)
	return nil
}

// Unwrap burns owner's wrapped tokens and credits the native balance.
func (l *Ledger) Unwrap(token, owner common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(token, owner, amount); err != nil {
		return err
	}
	if bal, ok := l.native[owner]; ok {
		bal.Add(bal, amount)
	} else {
		l.native[owner] = new(uint256.Int).Set(amount)
	}
	return nil
}

// credit adds amount to owner's balance. Callers hold l.mu.
func (l *Ledger) credit(token, owner common.Address, amount *uint256.Int) {
	key := accountKey{token, owner}
	if bal, ok := l.balances[key]; ok {
		bal.Add(bal, amount)
		return
	}
	l.balances[key] = new(uint256.Int).Set(amount)
}

// debit removes amount from owner's balance. Callers hold l.mu.
func (l *Ledger) debit(token, owner common.Address, amount *uint256.Int) error {
	key := accountKey{token, owner}
	bal, ok := l.balances[key]
	if !ok || bal.Lt(amount) {
		return apperror.New(apperror.CodeInsufficientBalance,
			apperror.WithContextf("token %s owner %s", token.Hex(), owner.Hex()))
	}
	bal.Sub(bal, amount)
	return nil
}
