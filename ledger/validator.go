package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// validateAfterTransfer runs the per-overlay reservation checks on the
// sender once the raw balances have moved. Checks compose in a fixed
// order: frozen, then premint, then restriction. The first violation
// aborts the call; run() rolls back every mutation.
//
// The frozen-transfer channel debits the frozen bucket before the raw move
// and is therefore exempt from the frozen and premint checks. The
// restriction check applies to every channel.
func (l *Ledger) validateAfterTransfer(from, to common.Address, kind transferKind, today inter.Day) error {
	acc := l.account(from)
	if acc == nil {
		return nil
	}
	preminted := l.premintedAt(acc, today)

	if kind != transferFrozenChannel {
		// Frozen: the balance net of premint reservations must still cover
		// the frozen amount.
		spendable := clampedSub(acc.balance, preminted)
		if spendable.Cmp(acc.frozen) < 0 {
			return fmt.Errorf("%w: %s covers %s of %s frozen",
				ErrTransferExceededFrozenAmount, from.Hex(), spendable, acc.frozen)
		}

		// Premint: locked records must remain fully backed by the balance.
		if acc.balance.Cmp(preminted) < 0 {
			return fmt.Errorf("%w: %s holds %s of %s preminted",
				ErrTransferExceededPremintedAmount, from.Hex(), acc.balance, preminted)
		}
	}

	if acc.totalRestricted.Sign() > 0 {
		// Restriction: the balance net of frozen and premint reservations
		// must cover the remaining restricted total. Exception: when
		// nothing else is reserved and the per-counterparty aggregate
		// exceeds the whole balance the account is over-reserved, and the
		// check is skipped rather than trapping funds.
		spendable := clampedSub(clampedSub(acc.balance, acc.frozen), preminted)
		overReserved := acc.frozen.Sign() == 0 && preminted.Sign() == 0 &&
			acc.restrictedPair(to).Cmp(acc.balance) > 0
		if !overReserved && spendable.Cmp(acc.totalRestricted) < 0 {
			return fmt.Errorf("%w: %s covers %s of %s restricted",
				ErrTransferExceededRestrictedAmount, from.Hex(), spendable, acc.totalRestricted)
		}
	}
	return nil
}

// clampedSub returns max(a-b, 0) in a fresh big.Int.
func clampedSub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		r.SetInt64(0)
	}
	return r
}
