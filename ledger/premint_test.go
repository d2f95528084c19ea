package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/inter"
)

func TestPremintIncrease(t *testing.T) {
	l, _ := newTestLedger(t)

	release := testDay + 10
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1000, release))
	require.Equal(t, big_(1000), l.BalanceOf(alice))
	require.Equal(t, big_(1000), l.TotalSupply())
	require.Equal(t, big_(1000), l.BalanceOfPremint(alice, testDay.Start()))

	// Same release day tops up the existing record instead of appending.
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 500, release))
	records := l.GetPremints(alice)
	require.Len(t, records, 1)
	require.Equal(t, uint64(1500), records[0].Amount)
	require.Equal(t, release, records[0].ReleaseDay)

	err := l.PremintIncrease(at(admin, testDay), alice, 0, release)
	require.ErrorIs(t, err, ErrZeroPremintAmount)

	err = l.PremintIncrease(at(admin, testDay), alice, 1, testDay)
	require.ErrorIs(t, err, ErrPremintReleaseTimePassed)

	err = l.PremintIncrease(at(alice, testDay), alice, 1, release)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestPremintIncrease_pendingLimit(t *testing.T) {
	l, _ := newTestLedger(t)
	limit := int(l.Rules().Premint.MaxPendingPremints)

	for i := 0; i < limit; i++ {
		require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1, testDay+inter.Day(i+1)))
	}
	err := l.PremintIncrease(at(admin, testDay), alice, 1, testDay+inter.Day(limit+1))
	require.ErrorIs(t, err, ErrMaxPendingPremintsLimit)

	// Topping up an existing day still works at the limit.
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1, testDay+1))
}

func TestPremintIncrease_overflow(t *testing.T) {
	l, _ := newTestLedger(t)

	release := testDay + 10
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1<<63, release))
	err := l.PremintIncrease(at(admin, testDay), alice, 1<<63, release)
	require.ErrorIs(t, err, ErrPremintAmountOverflow)
	// The failed call changed nothing.
	records := l.GetPremints(alice)
	require.Len(t, records, 1)
	require.Equal(t, uint64(1<<63), records[0].Amount)
}

func TestPremintDecrease(t *testing.T) {
	l, _ := newTestLedger(t)

	release := testDay + 10
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1000, release))

	require.NoError(t, l.PremintDecrease(at(admin, testDay), alice, 400, release))
	require.Equal(t, big_(600), l.BalanceOf(alice))
	require.Equal(t, big_(600), l.TotalSupply())
	require.Equal(t, big_(600), l.BalanceOfPremint(alice, testDay.Start()))

	err := l.PremintDecrease(at(admin, testDay), alice, 601, release)
	require.ErrorIs(t, err, ErrPremintInsufficientAmount)

	err = l.PremintDecrease(at(admin, testDay), alice, 1, release+1)
	require.ErrorIs(t, err, ErrPremintNonExistent)

	// Draining the record removes it.
	require.NoError(t, l.PremintDecrease(at(admin, testDay), alice, 600, release))
	require.Empty(t, l.GetPremints(alice))
	require.Equal(t, big_(0), l.BalanceOf(alice))
}

// Premint 1000 releasing at day+1: before release transfers break the
// premint cover, afterwards the tokens spend freely without any call.
func TestPremintRelease(t *testing.T) {
	l, _ := newTestLedger(t)

	release := testDay + 1
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1000, release))

	err := l.Transfer(at(alice, testDay), bob, big_(1))
	require.ErrorIs(t, err, ErrTransferExceededPremintedAmount)

	require.Equal(t, big_(1000), l.BalanceOfPremint(alice, testDay.Start()))
	require.Equal(t, big_(0), l.BalanceOfPremint(alice, release.Start()))

	require.NoError(t, l.Transfer(at(alice, release), bob, big_(1000)))
	require.Equal(t, big_(1000), l.BalanceOf(bob))
}

func TestPremintPruning(t *testing.T) {
	l, _ := newTestLedger(t)

	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 100, testDay+1))
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 200, testDay+50))
	require.Len(t, l.GetPremints(alice), 2)

	// Views do not mutate: the expired record is still listed...
	later := testDay + 5
	require.Equal(t, big_(200), l.BalanceOfPremint(alice, later.Start()))
	require.Len(t, l.GetPremints(alice), 2)

	// ...until the next mutating premint call drops it.
	require.NoError(t, l.PremintIncrease(at(admin, later), bob, 1, later+1))
	require.Len(t, l.GetPremints(alice), 2) // other account untouched
	require.NoError(t, l.PremintIncrease(at(admin, later), alice, 1, later+1))
	records := l.GetPremints(alice)
	require.Len(t, records, 2) // expired one pruned, new one added
	for _, rec := range records {
		require.NotEqual(t, testDay+1, rec.ReleaseDay)
	}
}

func TestPremintReschedule(t *testing.T) {
	l, _ := newTestLedger(t)

	orig := testDay + 10
	target := testDay + 40
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 500, orig))
	require.NoError(t, l.PremintReschedule(at(admin, testDay), orig, target))
	require.Equal(t, target, l.ResolvePremintRelease(orig))

	// Locked until the rescheduled day, not the original one.
	err := l.Transfer(at(alice, orig), bob, big_(1))
	require.ErrorIs(t, err, ErrTransferExceededPremintedAmount)
	require.NoError(t, l.Transfer(at(alice, target), bob, big_(500)))
}

func TestPremintReschedule_errors(t *testing.T) {
	l, _ := newTestLedger(t)

	orig := testDay + 10
	target := testDay + 40

	err := l.PremintReschedule(at(alice, testDay), orig, target)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, l.PremintReschedule(at(admin, testDay), orig, target))

	err = l.PremintReschedule(at(admin, testDay), orig, target)
	require.ErrorIs(t, err, ErrPremintReschedulingAlreadyConfigured)

	// One hop only: the target day cannot be rescheduled further, and a
	// source day cannot become a target.
	err = l.PremintReschedule(at(admin, testDay), target, testDay+60)
	require.ErrorIs(t, err, ErrPremintReschedulingChain)
	err = l.PremintReschedule(at(admin, testDay), testDay+60, orig)
	require.ErrorIs(t, err, ErrPremintReschedulingChain)

	err = l.PremintReschedule(at(admin, testDay), testDay+20, testDay)
	require.ErrorIs(t, err, ErrPremintReschedulingTimePassed)

	err = l.PremintReschedule(at(admin, target), orig, target+10)
	require.ErrorIs(t, err, ErrPremintReleaseTimePassed)
}

func TestPremintReschedule_undo(t *testing.T) {
	l, _ := newTestLedger(t)

	orig := testDay + 10
	target := testDay + 40
	require.NoError(t, l.PremintReschedule(at(admin, testDay), orig, target))
	require.Equal(t, target, l.ResolvePremintRelease(orig))

	// target == original clears the mapping.
	require.NoError(t, l.PremintReschedule(at(admin, testDay), orig, orig))
	require.Equal(t, orig, l.ResolvePremintRelease(orig))

	// The former target is free again.
	require.NoError(t, l.PremintReschedule(at(admin, testDay), target, testDay+60))

	// Undoing a day that was never rescheduled is a duplicate config.
	err := l.PremintReschedule(at(admin, testDay), orig, orig)
	require.ErrorIs(t, err, ErrPremintReschedulingAlreadyConfigured)
}

// Once either day involved has passed, an undo may no longer move the
// schedule: clearing the mapping after the original day would release the
// record immediately.
func TestPremintReschedule_undoAfterTimePassed(t *testing.T) {
	l, _ := newTestLedger(t)

	orig := testDay + 10
	target := testDay + 40
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 500, orig))
	require.NoError(t, l.PremintReschedule(at(admin, testDay), orig, target))

	// The original day has passed, the rescheduled release has not.
	err := l.PremintReschedule(at(admin, testDay+20), orig, orig)
	require.ErrorIs(t, err, ErrPremintReschedulingTimePassed)
	require.Equal(t, target, l.ResolvePremintRelease(orig))
	require.Equal(t, big_(500), l.BalanceOfPremint(alice, (testDay + 20).Start()))

	// Mirror case: moved earlier and already effectively released.
	late := testDay + 60
	require.NoError(t, l.PremintReschedule(at(admin, testDay), late, testDay+15))
	err = l.PremintReschedule(at(admin, testDay+20), late, late)
	require.ErrorIs(t, err, ErrPremintReleaseTimePassed)
}

func TestPremintReschedule_movesEarlier(t *testing.T) {
	l, _ := newTestLedger(t)

	orig := testDay + 40
	earlier := testDay + 10
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 300, orig))
	require.NoError(t, l.PremintReschedule(at(admin, testDay), orig, earlier))

	require.Equal(t, big_(300), l.BalanceOfPremint(alice, testDay.Start()))
	require.Equal(t, big_(0), l.BalanceOfPremint(alice, earlier.Start()))
	require.NoError(t, l.Transfer(at(alice, earlier), bob, big_(300)))
}

func TestPremintCapAmount(t *testing.T) {
	auth := NewStaticAuthority()
	auth.Grant(admin, RoleMinter)
	rules := asset.FakeLedgerRules()
	rules.Premint.MaxAmount = 1000
	l := New(rules, auth)
	defer l.Stop()

	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 1000, testDay+1))
	err := l.PremintIncrease(at(admin, testDay), alice, 1, testDay+1)
	require.ErrorIs(t, err, ErrPremintAmountOverflow)
}
