package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// The frozen overlay marks part of an account's balance as immovable by
// ordinary transfers. Frozen tokens leave the account only through the
// dedicated TransferFrozen channel. All operations require the freezer
// role, and contract accounts cannot be frozen.

// FreezeIncrease raises the frozen amount of account by amount. The frozen
// amount may exceed the current balance; the excess simply over-covers
// later deposits.
func (l *Ledger) FreezeIncrease(ctx CallContext, account common.Address, amount *big.Int) error {
	return l.run("freezeIncrease", func() error {
		if err := l.freezeChecks(ctx, account, amount); err != nil {
			return err
		}
		acc := l.mustAccount(account)
		old := new(big.Int).Set(acc.frozen)
		l.setFrozen(account, new(big.Int).Add(acc.frozen, amount))
		l.emitFrozen(account, old, acc.frozen)
		return nil
	})
}

// FreezeDecrease lowers the frozen amount of account by amount.
func (l *Ledger) FreezeDecrease(ctx CallContext, account common.Address, amount *big.Int) error {
	return l.run("freezeDecrease", func() error {
		if err := l.freezeChecks(ctx, account, amount); err != nil {
			return err
		}
		acc := l.account(account)
		if acc == nil || acc.frozen.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s frozen %s, decrease %s",
				ErrLackOfFrozenBalance, account.Hex(), l.BalanceOfFrozen(account), amount)
		}
		old := new(big.Int).Set(acc.frozen)
		l.setFrozen(account, new(big.Int).Sub(acc.frozen, amount))
		l.emitFrozen(account, old, acc.frozen)
		return nil
	})
}

// Freeze replaces the frozen amount of account outright. Kept for operator
// tooling; the increase/decrease pair is the preferred interface since it
// composes without read-modify-write races at the call site.
func (l *Ledger) Freeze(ctx CallContext, account common.Address, amount *big.Int) error {
	return l.run("freeze", func() error {
		if err := l.requireRole(ctx, RoleFreezer); err != nil {
			return err
		}
		if account == (common.Address{}) {
			return fmt.Errorf("%w: freeze target", ErrZeroAddress)
		}
		if amount.Sign() < 0 {
			return ErrNegativeAmount
		}
		if l.auth.IsContract(account) {
			return fmt.Errorf("%w: %s", ErrContractBalanceFreezing, account.Hex())
		}
		acc := l.mustAccount(account)
		old := new(big.Int).Set(acc.frozen)
		l.setFrozen(account, new(big.Int).Set(amount))
		l.emitFrozen(account, old, acc.frozen)
		return nil
	})
}

// TransferFrozen moves amount of from's frozen tokens to to. The frozen
// reservation is consumed first, so the post-transfer frozen and premint
// checks do not apply; the restriction check still does.
func (l *Ledger) TransferFrozen(ctx CallContext, from, to common.Address, amount *big.Int) error {
	return l.run("transferFrozen", func() error {
		if err := l.requireRole(ctx, RoleFreezer); err != nil {
			return err
		}
		if err := validAmount(amount); err != nil {
			return err
		}
		acc := l.account(from)
		if acc == nil || acc.frozen.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s frozen %s, transfer %s",
				ErrLackOfFrozenBalance, from.Hex(), l.BalanceOfFrozen(from), amount)
		}
		old := new(big.Int).Set(acc.frozen)
		l.setFrozen(from, new(big.Int).Sub(acc.frozen, amount))
		l.emitFrozen(from, old, acc.frozen)
		return l.transfer(ctx, from, to, amount, transferFrozenChannel)
	})
}

func (l *Ledger) freezeChecks(ctx CallContext, account common.Address, amount *big.Int) error {
	if err := l.requireRole(ctx, RoleFreezer); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return fmt.Errorf("%w: freeze target", ErrZeroAddress)
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	if l.auth.IsContract(account) {
		return fmt.Errorf("%w: %s", ErrContractBalanceFreezing, account.Hex())
	}
	return nil
}

func (l *Ledger) emitFrozen(account common.Address, old, new_ *big.Int) {
	l.emit(inter.AuditRecord{
		Kind:    inter.RecordFrozen,
		Account: account,
		Old:     old,
		New:     new(big.Int).Set(new_),
	})
}
