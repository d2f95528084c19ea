package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-asset-ledger/asset"
)

// richLedger builds a ledger exercising every state field.
func richLedger(t *testing.T) *Ledger {
	t.Helper()
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	fund(t, l, bob, 500)
	require.NoError(t, l.Approve(at(alice, testDay), bob, big_(120)))
	require.NoError(t, l.FreezeIncrease(at(admin, testDay), alice, big_(200)))
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 300, testDay+10))
	require.NoError(t, l.PremintIncrease(at(admin, testDay), alice, 70, testDay+20))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(100), purposeX))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(40), asset.AnyID))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), bob, carol, big_(60), purposeY))
	require.NoError(t, l.PremintReschedule(at(admin, testDay), testDay+10, testDay+30))
	return l
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := richLedger(t)
	require.NoError(t, l.CheckInvariants())

	snap := l.Snapshot()
	restored := New(asset.FakeLedgerRules(), NewStaticAuthority())
	defer restored.Stop()
	require.NoError(t, restored.RestoreSnapshot(snap))

	require.Equal(t, snap, restored.Snapshot())
	require.Equal(t, l.TotalSupply(), restored.TotalSupply())
	require.Equal(t, l.BalanceOfFrozen(alice), restored.BalanceOfFrozen(alice))
	require.Equal(t, l.BalanceOfPremint(alice, testDay.Start()), restored.BalanceOfPremint(alice, testDay.Start()))
	require.Equal(t, l.Allowance(alice, bob), restored.Allowance(alice, bob))
	require.Equal(t, testDay+30, restored.ResolvePremintRelease(testDay+10))
}

func TestSnapshot_deterministicOrder(t *testing.T) {
	a := richLedger(t).Snapshot()
	b := richLedger(t).Snapshot()
	require.Equal(t, a, b)
}

func TestRestoreSnapshot_rejectsNonEmpty(t *testing.T) {
	l := richLedger(t)
	err := l.RestoreSnapshot(richLedger(t).Snapshot())
	require.ErrorIs(t, err, errSnapshotIntoNonEmpty)
}

func TestRestoreSnapshot_badSupply(t *testing.T) {
	snap := richLedger(t).Snapshot()
	snap.Supply = big_(1)

	restored := New(asset.FakeLedgerRules(), NewStaticAuthority())
	defer restored.Stop()
	require.Error(t, restored.RestoreSnapshot(snap))
}

func TestCheckInvariants(t *testing.T) {
	l := richLedger(t)
	require.NoError(t, l.CheckInvariants())

	// Corrupt a derived aggregate behind the API's back.
	l.accounts[alice].totalRestricted = big_(1)
	require.Error(t, l.CheckInvariants())
}
