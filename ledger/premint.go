package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// The premint overlay mints tokens ahead of time and reserves them until a
// release day. Records are keyed by their original release day; a global
// day-to-day rescheduling table moves whole release days at once, with at
// most one hop (an original day may not point at another rescheduled day,
// nor be pointed at while itself pointing elsewhere).
//
// Expired records are pruned lazily: every mutating premint operation first
// drops records whose resolved release day has passed. Views resolve
// without mutating.

// PremintIncrease mints amount tokens into account, reserved until
// releaseDay. An existing record with the same original day is topped up.
// Requires the minter role.
func (l *Ledger) PremintIncrease(ctx CallContext, account common.Address, amount uint64, releaseDay inter.Day) error {
	return l.run("premintIncrease", func() error {
		if err := l.requireRole(ctx, RoleMinter); err != nil {
			return err
		}
		if account == (common.Address{}) {
			return fmt.Errorf("%w: premint target", ErrZeroAddress)
		}
		if amount == 0 {
			return ErrZeroPremintAmount
		}
		if l.auth.IsBlocked(account) {
			return fmt.Errorf("%w: %s", ErrBlockedAccount, account.Hex())
		}
		if l.resolveRelease(releaseDay) <= ctx.Today() {
			return fmt.Errorf("%w: day %d", ErrPremintReleaseTimePassed, releaseDay)
		}

		acc := l.mustAccount(account)
		l.prunePremints(account, ctx.Today())

		idx := acc.premintIndex(releaseDay)
		var oldAmount uint64
		if idx >= 0 {
			oldAmount = acc.premints[idx].Amount
		} else if len(acc.premints) >= int(l.rules.Premint.MaxPendingPremints) {
			return fmt.Errorf("%w: %d pending", ErrMaxPendingPremintsLimit, len(acc.premints))
		}
		newAmount := oldAmount + amount
		if newAmount < oldAmount {
			return fmt.Errorf("%w: day %d", ErrPremintAmountOverflow, releaseDay)
		}
		if max := l.rules.Premint.MaxAmount; max != 0 && newAmount > max {
			return fmt.Errorf("%w: %d exceeds cap %d", ErrPremintAmountOverflow, newAmount, max)
		}

		records := copyPremints(acc.premints)
		if idx >= 0 {
			records[idx].Amount = newAmount
		} else {
			records = append(records, PremintRecord{Amount: newAmount, ReleaseDay: releaseDay})
		}
		l.setPremints(account, records)

		if err := l.mint(ctx, account, new(big.Int).SetUint64(amount)); err != nil {
			return err
		}
		l.emit(inter.AuditRecord{
			Kind:    inter.RecordPremint,
			Account: account,
			Day:     releaseDay,
			Old:     new(big.Int).SetUint64(oldAmount),
			New:     new(big.Int).SetUint64(newAmount),
		})
		return nil
	})
}

// PremintDecrease burns amount tokens out of the pending premint record
// with the given original release day. Requires the minter role.
func (l *Ledger) PremintDecrease(ctx CallContext, account common.Address, amount uint64, releaseDay inter.Day) error {
	return l.run("premintDecrease", func() error {
		if err := l.requireRole(ctx, RoleMinter); err != nil {
			return err
		}
		if amount == 0 {
			return ErrZeroPremintAmount
		}
		acc := l.account(account)
		if acc == nil {
			return fmt.Errorf("%w: day %d", ErrPremintNonExistent, releaseDay)
		}
		l.prunePremints(account, ctx.Today())

		idx := acc.premintIndex(releaseDay)
		if idx < 0 {
			return fmt.Errorf("%w: day %d", ErrPremintNonExistent, releaseDay)
		}
		oldAmount := acc.premints[idx].Amount
		if amount > oldAmount {
			return fmt.Errorf("%w: have %d, decrease %d", ErrPremintInsufficientAmount, oldAmount, amount)
		}
		newAmount := oldAmount - amount

		records := copyPremints(acc.premints)
		if newAmount == 0 {
			records[idx] = records[len(records)-1]
			records = records[:len(records)-1]
		} else {
			records[idx].Amount = newAmount
		}
		l.setPremints(account, records)

		if err := l.burn(ctx, account, new(big.Int).SetUint64(amount)); err != nil {
			return err
		}
		l.emit(inter.AuditRecord{
			Kind:    inter.RecordPremint,
			Account: account,
			Day:     releaseDay,
			Old:     new(big.Int).SetUint64(oldAmount),
			New:     new(big.Int).SetUint64(newAmount),
		})
		return nil
	})
}

// PremintReschedule moves the effective release of every record originally
// scheduled for original to target. Rescheduling target back to original
// undoes a previous reschedule. At most one hop is allowed: a day that is
// the target of a reschedule cannot itself be rescheduled, and a target may
// not be a rescheduled source. Requires the minter role.
func (l *Ledger) PremintReschedule(ctx CallContext, original, target inter.Day) error {
	return l.run("premintReschedule", func() error {
		if err := l.requireRole(ctx, RoleMinter); err != nil {
			return err
		}
		current := l.resolveRelease(original)
		if current == target {
			return fmt.Errorf("%w: day %d already releases at %d", ErrPremintReschedulingAlreadyConfigured, original, target)
		}
		// The time checks guard the undo path too: once either the requested
		// target or the currently effective release has passed, the schedule
		// may no longer move.
		if target <= ctx.Today() {
			return fmt.Errorf("%w: day %d", ErrPremintReschedulingTimePassed, target)
		}
		if current <= ctx.Today() {
			return fmt.Errorf("%w: day %d", ErrPremintReleaseTimePassed, original)
		}
		if target == original {
			// Undo: clear the mapping, restoring the original day.
			l.clearReschedule(original)
			l.emitReschedule(original, current, target)
			return nil
		}
		if l.rescheduleRefs[original] > 0 {
			return fmt.Errorf("%w: day %d is a rescheduling target", ErrPremintReschedulingChain, original)
		}
		if _, chained := l.reschedules[target]; chained {
			return fmt.Errorf("%w: day %d is itself rescheduled", ErrPremintReschedulingChain, target)
		}

		l.clearReschedule(original)
		l.setReschedule(original, target)
		l.emitReschedule(original, current, target)
		return nil
	})
}

// resolveRelease maps an original release day through the rescheduling
// table. ResolvePremintRelease is the exported view.
func (l *Ledger) resolveRelease(day inter.Day) inter.Day {
	if target, ok := l.reschedules[day]; ok {
		return target
	}
	return day
}

// ResolvePremintRelease returns the effective release day for records
// originally scheduled at day.
func (l *Ledger) ResolvePremintRelease(day inter.Day) inter.Day {
	return l.resolveRelease(day)
}

// BalanceOfPremint returns the still-reserved preminted amount of account
// at the given time.
func (l *Ledger) BalanceOfPremint(account common.Address, now inter.Timestamp) *big.Int {
	acc := l.account(account)
	if acc == nil {
		return new(big.Int)
	}
	return l.premintedAt(acc, now.Day())
}

// GetPremints returns a copy of the account's pending premint records,
// including any whose resolved release day has passed but which have not
// been pruned yet.
func (l *Ledger) GetPremints(account common.Address) []PremintRecord {
	acc := l.account(account)
	if acc == nil {
		return nil
	}
	return copyPremints(acc.premints)
}

// premintedAt sums the records still locked past day, resolving each
// record's release through the rescheduling table.
func (l *Ledger) premintedAt(acc *accountState, day inter.Day) *big.Int {
	sum := new(big.Int)
	for _, rec := range acc.premints {
		if l.resolveRelease(rec.ReleaseDay) > day {
			sum.Add(sum, new(big.Int).SetUint64(rec.Amount))
		}
	}
	return sum
}

// prunePremints drops every record of account whose resolved release day
// has passed, swap-and-pop. Journaled, so a later failure in the same
// operation restores the records (they stay prunable).
func (l *Ledger) prunePremints(account common.Address, today inter.Day) {
	acc := l.account(account)
	if acc == nil {
		return
	}
	records := acc.premints
	changed := false
	for i := 0; i < len(records); {
		if l.resolveRelease(records[i].ReleaseDay) > today {
			i++
			continue
		}
		if !changed {
			records = copyPremints(records)
			changed = true
		}
		records[i] = records[len(records)-1]
		records = records[:len(records)-1]
	}
	if changed {
		l.setPremints(account, records)
	}
}

func (l *Ledger) setReschedule(original, target inter.Day) {
	prev, had := l.reschedules[original]
	l.journal.append(rescheduleChange{day: original, prev: prev, had: had})
	l.reschedules[original] = target

	l.journal.append(rescheduleRefChange{day: target, prev: l.rescheduleRefs[target]})
	l.rescheduleRefs[target]++
}

// clearReschedule removes any existing mapping of original and drops the
// reference it held on its target.
func (l *Ledger) clearReschedule(original inter.Day) {
	target, had := l.reschedules[original]
	if !had {
		return
	}
	l.journal.append(rescheduleChange{day: original, prev: target, had: true})
	delete(l.reschedules, original)

	refs := l.rescheduleRefs[target]
	l.journal.append(rescheduleRefChange{day: target, prev: refs})
	if refs <= 1 {
		delete(l.rescheduleRefs, target)
	} else {
		l.rescheduleRefs[target] = refs - 1
	}
}

func (l *Ledger) emitReschedule(original, oldTarget, newTarget inter.Day) {
	l.emit(inter.AuditRecord{
		Kind:   inter.RecordPremintRescheduled,
		Day:    original,
		OldDay: oldTarget,
		NewDay: newTarget,
	})
}
