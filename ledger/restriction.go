package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/inter"
)

// The restriction overlay reserves parts of an account's balance for
// specific counterparties, keyed by an opaque id. asset.AnyID is the
// wildcard id, matched after the specific slot during consumption. Three
// levels are kept consistent at all times: the specific (to, id) slot, the
// per-(account, to) aggregate and the account's total.
//
// All mutating operations require the restrictor role and the
// RestrictionsV2 upgrade.

// RestrictionIncrease raises the reservation of (account -> to, id) by
// amount.
func (l *Ledger) RestrictionIncrease(ctx CallContext, account, to common.Address, amount *big.Int, id common.Hash) error {
	return l.run("restrictionIncrease", func() error {
		if err := l.restrictionChecks(ctx, account, to, amount, id); err != nil {
			return err
		}
		acc := l.mustAccount(account)
		oldSlot := acc.restrictedSlot(to, id)
		oldTotal := new(big.Int).Set(acc.totalRestricted)

		l.setRestrictionSlot(account, to, id, new(big.Int).Add(oldSlot, amount))
		l.setRestrictionPair(account, to, new(big.Int).Add(acc.restrictedPair(to), amount))
		l.setRestrictionTotal(account, new(big.Int).Add(acc.totalRestricted, amount))

		l.emitRestriction(account, to, id, oldSlot, acc.restrictedSlot(to, id), oldTotal, acc.totalRestricted)
		return nil
	})
}

// RestrictionDecrease lowers the reservation of (account -> to, id) by
// amount.
func (l *Ledger) RestrictionDecrease(ctx CallContext, account, to common.Address, amount *big.Int, id common.Hash) error {
	return l.run("restrictionDecrease", func() error {
		if err := l.restrictionChecks(ctx, account, to, amount, id); err != nil {
			return err
		}
		acc := l.account(account)
		if acc == nil {
			return fmt.Errorf("%w: no reservations for %s", ErrLackOfRestrictedBalance, account.Hex())
		}
		oldSlot := acc.restrictedSlot(to, id)
		if oldSlot.Cmp(amount) < 0 {
			return fmt.Errorf("%w: slot holds %s, decrease %s", ErrLackOfRestrictedBalance, oldSlot, amount)
		}
		oldTotal := new(big.Int).Set(acc.totalRestricted)

		l.setRestrictionSlot(account, to, id, new(big.Int).Sub(oldSlot, amount))
		l.setRestrictionPair(account, to, new(big.Int).Sub(acc.restrictedPair(to), amount))
		l.setRestrictionTotal(account, new(big.Int).Sub(acc.totalRestricted, amount))

		l.emitRestriction(account, to, id, oldSlot, acc.restrictedSlot(to, id), oldTotal, acc.totalRestricted)
		return nil
	})
}

// TransferWithID is the privileged transfer path that consumes matching
// reservations as it moves tokens. The specific (to, id) slot is consumed
// first, then the (to, AnyID) wildcard; any excess beyond the two is plain
// unrestricted movement, so the aggregates drop only by what was actually
// reserved.
func (l *Ledger) TransferWithID(ctx CallContext, from, to common.Address, amount *big.Int, id common.Hash) error {
	return l.run("transferWithId", func() error {
		if err := l.restrictionChecks(ctx, from, to, amount, id); err != nil {
			return err
		}
		acc := l.account(from)
		if acc != nil && acc.totalRestricted.Sign() > 0 {
			l.consumeReservation(from, to, amount, id)
		}
		return l.transfer(ctx, from, to, amount, transferRestricted)
	})
}

// consumeReservation burns up to amount from the (to, id) slot, then the
// (to, AnyID) slot. If id is AnyID itself, only the wildcard is consumed.
// The emitted records chain: each one's old total is the previous one's new
// total, so indexers can replay the sequence.
func (l *Ledger) consumeReservation(from, to common.Address, amount *big.Int, id common.Hash) {
	acc := l.mustAccount(from)
	runningTotal := new(big.Int).Set(acc.totalRestricted)
	remaining := new(big.Int).Set(amount)
	consumed := new(big.Int)

	takeSlot := func(slotID common.Hash) {
		if remaining.Sign() == 0 {
			return
		}
		old := acc.restrictedSlot(to, slotID)
		if old.Sign() == 0 {
			return
		}
		take := new(big.Int).Set(remaining)
		if take.Cmp(old) > 0 {
			take.Set(old)
		}
		l.setRestrictionSlot(from, to, slotID, new(big.Int).Sub(old, take))
		remaining.Sub(remaining, take)
		consumed.Add(consumed, take)
		oldTotal := new(big.Int).Set(runningTotal)
		runningTotal.Sub(runningTotal, take)
		l.emitRestriction(from, to, slotID, old, acc.restrictedSlot(to, slotID), oldTotal, runningTotal)
	}

	if id != asset.AnyID {
		takeSlot(id)
	}
	takeSlot(asset.AnyID)

	if consumed.Sign() > 0 {
		l.setRestrictionPair(from, to, new(big.Int).Sub(acc.restrictedPair(to), consumed))
		l.setRestrictionTotal(from, new(big.Int).Sub(acc.totalRestricted, consumed))
	}
}

// MigrateBalance moves the account's legacy purpose-keyed reservation into
// the generic (account, to, AnyID) slot. It only acts when to is the
// deployment's obsolete-purpose address and the account still carries a
// legacy value; otherwise it is a no-op. One-shot: the legacy value is
// cleared by the move.
func (l *Ledger) MigrateBalance(ctx CallContext, account, to common.Address) error {
	return l.run("migrateBalance", func() error {
		if err := l.requireRole(ctx, RoleRestrictor); err != nil {
			return err
		}
		if !l.rules.Upgrades.RestrictionsV2 {
			return fmt.Errorf("%w: restrictions v2", ErrFeatureDisabled)
		}
		if to != l.rules.Restriction.ObsoletePurposeAddress {
			return nil
		}
		acc := l.account(account)
		if acc == nil || acc.legacyPurpose.Sign() == 0 {
			return nil
		}
		amount := new(big.Int).Set(acc.legacyPurpose)
		oldSlot := acc.restrictedSlot(to, asset.AnyID)
		oldTotal := new(big.Int).Set(acc.totalRestricted)

		l.setLegacyPurpose(account, new(big.Int))
		l.setRestrictionSlot(account, to, asset.AnyID, new(big.Int).Add(oldSlot, amount))
		l.setRestrictionPair(account, to, new(big.Int).Add(acc.restrictedPair(to), amount))
		l.setRestrictionTotal(account, new(big.Int).Add(acc.totalRestricted, amount))

		l.emitRestriction(account, to, asset.AnyID, oldSlot, acc.restrictedSlot(to, asset.AnyID), oldTotal, acc.totalRestricted)
		return nil
	})
}

// BalanceOfRestricted is the reservation query. A zero to address returns
// the account's total restricted balance; a zero id with a non-zero to
// returns the per-counterparty aggregate; otherwise the specific slot.
func (l *Ledger) BalanceOfRestricted(account, to common.Address, id common.Hash) *big.Int {
	acc := l.account(account)
	if acc == nil {
		return new(big.Int)
	}
	if to == (common.Address{}) {
		return new(big.Int).Set(acc.totalRestricted)
	}
	if id == (common.Hash{}) {
		return acc.restrictedPair(to)
	}
	return acc.restrictedSlot(to, id)
}

func (l *Ledger) restrictionChecks(ctx CallContext, account, to common.Address, amount *big.Int, id common.Hash) error {
	if err := l.requireRole(ctx, RoleRestrictor); err != nil {
		return err
	}
	if !l.rules.Upgrades.RestrictionsV2 {
		return fmt.Errorf("%w: restrictions v2", ErrFeatureDisabled)
	}
	if account == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("%w: restriction party", ErrZeroAddress)
	}
	if id == (common.Hash{}) {
		return ErrZeroID
	}
	return validAmount(amount)
}

// Journaling setters for the three restriction levels. Zero values are
// stored as deletions: a zero slot is equivalent to an absent one.

func (l *Ledger) setRestrictionSlot(account, to common.Address, id common.Hash, v *big.Int) {
	acc := l.mustAccount(account)
	ids := acc.restricted[to]
	var prev *big.Int
	var had bool
	if ids != nil {
		prev, had = ids[id]
	}
	l.journal.append(restrictionSlotChange{account: account, to: to, id: id, prev: prev, had: had})
	if v.Sign() == 0 {
		if had {
			delete(ids, id)
			if len(ids) == 0 {
				delete(acc.restricted, to)
			}
		}
		return
	}
	if ids == nil {
		ids = make(map[common.Hash]*big.Int)
		acc.restricted[to] = ids
	}
	ids[id] = v
}

func (l *Ledger) setRestrictionPair(account, to common.Address, v *big.Int) {
	acc := l.mustAccount(account)
	prev, had := acc.restrictedToPair[to]
	l.journal.append(restrictionPairChange{account: account, to: to, prev: prev, had: had})
	if v.Sign() == 0 {
		delete(acc.restrictedToPair, to)
		return
	}
	acc.restrictedToPair[to] = v
}

func (l *Ledger) setRestrictionTotal(account common.Address, v *big.Int) {
	acc := l.mustAccount(account)
	l.journal.append(restrictionTotalChange{account: account, prev: acc.totalRestricted})
	acc.totalRestricted = v
}

func (l *Ledger) setLegacyPurpose(account common.Address, v *big.Int) {
	acc := l.mustAccount(account)
	l.journal.append(legacyPurposeChange{account: account, prev: acc.legacyPurpose})
	acc.legacyPurpose = v
}

func (l *Ledger) emitRestriction(account, to common.Address, id common.Hash, oldSlot, newSlot, oldTotal, newTotal *big.Int) {
	l.emit(inter.AuditRecord{
		Kind:         inter.RecordRestriction,
		Account:      account,
		Counterparty: to,
		ID:           id,
		Old:          oldSlot,
		New:          new(big.Int).Set(newSlot),
		OldTotal:     oldTotal,
		NewTotal:     new(big.Int).Set(newTotal),
	})
}
