package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// One account carrying all three reservations at once: the overlays stack,
// and the free balance is what remains after every one of them.
func TestStackedReservations(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)

	require.NoError(t, l.FreezeIncrease(at(admin, testDay), alice, big_(200)))
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 300, testDay+10))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(100), purposeX))

	// Balance 1300: 200 frozen + 300 preminted + 100 restricted = 600
	// reserved, 700 free.
	now := testDay.Start()
	require.Equal(t, big_(1300), l.BalanceOf(alice))
	require.Equal(t, big_(700), l.FreeBalance(alice, now))

	err := l.Transfer(at(alice, testDay), carol, big_(701))
	require.ErrorIs(t, err, ErrTransferExceededRestrictedAmount)
	require.NoError(t, l.Transfer(at(alice, testDay), carol, big_(700)))
	require.Zero(t, big_(0).Cmp(l.FreeBalance(alice, now)))

	// After the premint releases, those 300 free up without any call.
	release := testDay + 10
	require.Equal(t, big_(300), l.FreeBalance(alice, release.Start()))
}

// The check order is frozen, then premint, then restriction: with every
// overlay violated at once the frozen error surfaces.
func TestValidationOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)

	require.NoError(t, l.FreezeIncrease(at(admin, testDay), alice, big_(400)))
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 400, testDay+10))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(400), purposeX))

	err := l.Transfer(at(alice, testDay), carol, big_(900))
	require.ErrorIs(t, err, ErrTransferExceededFrozenAmount)

	// Lift the frozen reservation; the premint check is next in line.
	require.NoError(t, l.Freeze(at(admin, testDay), alice, big_(0)))
	err = l.Transfer(at(alice, testDay), carol, big_(1100))
	require.ErrorIs(t, err, ErrTransferExceededPremintedAmount)
}

// Burns run the same post-transfer validation as transfers.
func TestBurn_respectsReservations(t *testing.T) {
	l, auth := newTestLedger(t)
	auth.Grant(alice, RoleMinter)
	fund(t, l, alice, 1000)

	require.NoError(t, l.FreezeIncrease(at(admin, testDay), alice, big_(800)))
	err := l.Burn(at(alice, testDay), big_(300))
	require.ErrorIs(t, err, ErrTransferExceededFrozenAmount)
	require.Equal(t, big_(1000), l.BalanceOf(alice))

	require.NoError(t, l.Burn(at(alice, testDay), big_(200)))
	require.Equal(t, big_(800), l.BalanceOf(alice))
}

func TestFreeBalance_clamps(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 100)

	// Over-frozen account: free balance clamps at zero, never negative.
	require.NoError(t, l.FreezeIncrease(at(admin, testDay), alice, big_(500)))
	require.Zero(t, big_(0).Cmp(l.FreeBalance(alice, testDay.Start())))

	require.Zero(t, big_(0).Cmp(l.FreeBalance(bob, testDay.Start())))
}
