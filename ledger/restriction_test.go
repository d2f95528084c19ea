package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/inter"
)

var (
	purposeX = crypto.Keccak256Hash([]byte("purposeX"))
	purposeY = crypto.Keccak256Hash([]byte("purposeY"))
)

func TestRestrictionIncreaseDecrease(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)

	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(300), purposeX))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(100), purposeY))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, carol, big_(50), purposeX))

	// The three aggregation levels stay consistent.
	require.Equal(t, big_(300), l.BalanceOfRestricted(alice, bob, purposeX))
	require.Equal(t, big_(400), l.BalanceOfRestricted(alice, bob, common.Hash{}))
	require.Equal(t, big_(450), l.BalanceOfRestricted(alice, common.Address{}, common.Hash{}))

	require.NoError(t, l.RestrictionDecrease(at(admin, testDay), alice, bob, big_(200), purposeX))
	require.Equal(t, big_(100), l.BalanceOfRestricted(alice, bob, purposeX))
	require.Equal(t, big_(250), l.BalanceOfRestricted(alice, common.Address{}, common.Hash{}))

	err := l.RestrictionDecrease(at(admin, testDay), alice, bob, big_(101), purposeX)
	require.ErrorIs(t, err, ErrLackOfRestrictedBalance)
}

func TestRestriction_inputValidation(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.RestrictionIncrease(at(alice, testDay), alice, bob, big_(1), purposeX)
	require.ErrorIs(t, err, ErrUnauthorized)

	err = l.RestrictionIncrease(at(admin, testDay), common.Address{}, bob, big_(1), purposeX)
	require.ErrorIs(t, err, ErrZeroAddress)

	err = l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(1), common.Hash{})
	require.ErrorIs(t, err, ErrZeroID)

	err = l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(0), purposeX)
	require.ErrorIs(t, err, ErrZeroAmount)
}

func TestRestriction_featureGate(t *testing.T) {
	auth := NewStaticAuthority()
	auth.Grant(admin, RoleMinter).Grant(admin, RoleRestrictor)
	rules := asset.FakeLedgerRules()
	rules.Upgrades.RestrictionsV2 = false
	l := New(rules, auth)
	defer l.Stop()

	err := l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(1), purposeX)
	require.ErrorIs(t, err, ErrFeatureDisabled)
	err = l.TransferWithID(at(admin, testDay), alice, bob, big_(1), purposeX)
	require.ErrorIs(t, err, ErrFeatureDisabled)
}

// Reserve 300 for (alice -> bob, purposeX), then move 500 under that id:
// the reservation zeroes out, the totals drop by the 300 actually
// reserved, and the full 500 moves.
func TestTransferWithID_partialConsumption(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(300), purposeX))

	require.NoError(t, l.TransferWithID(at(admin, testDay), alice, bob, big_(500), purposeX))
	require.Equal(t, big_(500), l.BalanceOf(alice))
	require.Equal(t, big_(500), l.BalanceOf(bob))
	require.Equal(t, big_(0), l.BalanceOfRestricted(alice, bob, purposeX))
	require.Equal(t, big_(0), l.BalanceOfRestricted(alice, common.Address{}, common.Hash{}))
}

func TestTransferWithID_specificThenWildcard(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(100), purposeX))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(200), asset.AnyID))

	require.NoError(t, l.TransferWithID(at(admin, testDay), alice, bob, big_(150), purposeX))
	// 100 came from the specific slot, the remaining 50 from the wildcard.
	require.Equal(t, big_(0), l.BalanceOfRestricted(alice, bob, purposeX))
	require.Equal(t, big_(150), l.BalanceOfRestricted(alice, bob, asset.AnyID))
	require.Equal(t, big_(150), l.BalanceOfRestricted(alice, common.Address{}, common.Hash{}))
}

// When one transfer consumes two slots, the emitted records form a chain:
// the second record's old total is the first record's new total, so a
// consumer replaying the stream sees a consistent total at every step.
func TestTransferWithID_totalsChainAcrossSlots(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(100), purposeX))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(200), asset.AnyID))

	ch := make(chan inter.AuditRecord, 8)
	sub := l.SubscribeAudit(ch)
	defer sub.Unsubscribe()

	require.NoError(t, l.TransferWithID(at(admin, testDay), alice, bob, big_(150), purposeX))

	first := <-ch
	require.Equal(t, inter.RecordRestriction, first.Kind)
	require.Equal(t, purposeX, first.ID)
	require.Equal(t, big_(100), first.Old)
	require.Equal(t, big_(0), first.New)
	require.Equal(t, big_(300), first.OldTotal)
	require.Equal(t, big_(200), first.NewTotal)

	second := <-ch
	require.Equal(t, inter.RecordRestriction, second.Kind)
	require.Equal(t, asset.AnyID, second.ID)
	require.Equal(t, big_(200), second.Old)
	require.Equal(t, big_(150), second.New)
	require.Equal(t, first.NewTotal, second.OldTotal)
	require.Equal(t, big_(150), second.NewTotal)
}

func TestTransferWithID_wildcardIDConsumesWildcardOnly(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(100), purposeX))
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(200), asset.AnyID))

	require.NoError(t, l.TransferWithID(at(admin, testDay), alice, bob, big_(150), asset.AnyID))
	require.Equal(t, big_(100), l.BalanceOfRestricted(alice, bob, purposeX))
	require.Equal(t, big_(50), l.BalanceOfRestricted(alice, bob, asset.AnyID))
}

func TestTransferWithID_noReservations(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)

	// Zero total restricted: plain transfer without bookkeeping.
	require.NoError(t, l.TransferWithID(at(admin, testDay), alice, bob, big_(400), purposeX))
	require.Equal(t, big_(600), l.BalanceOf(alice))
	require.Equal(t, big_(400), l.BalanceOf(bob))
}

func TestTransferWithID_otherCounterpartyUnaffected(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, carol, big_(300), purposeX))

	// A transfer to bob cannot consume carol's reservation, and the
	// post-transfer check still protects it.
	err := l.TransferWithID(at(admin, testDay), alice, bob, big_(800), purposeX)
	require.ErrorIs(t, err, ErrTransferExceededRestrictedAmount)
	require.Equal(t, big_(1000), l.BalanceOf(alice))
	require.Equal(t, big_(300), l.BalanceOfRestricted(alice, carol, purposeX))

	require.NoError(t, l.TransferWithID(at(admin, testDay), alice, bob, big_(700), purposeX))
	require.Equal(t, big_(300), l.BalanceOfRestricted(alice, carol, purposeX))
}

// Ordinary transfers are bounded by reservations too, not only the
// privileged id path.
func TestTransfer_respectsRestricted(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(600), purposeX))

	err := l.Transfer(at(alice, testDay), carol, big_(500))
	require.ErrorIs(t, err, ErrTransferExceededRestrictedAmount)
	require.NoError(t, l.Transfer(at(alice, testDay), carol, big_(400)))
}

// Pins the over-reservation carve-out: when nothing else is reserved and
// the per-counterparty aggregate exceeds the whole balance, the
// restriction check is skipped for transfers to that counterparty.
func TestTransfer_overReservedPairSkipsCheck(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)
	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(1500), purposeX))

	// Toward bob the pair aggregate (1500) exceeds the balance: skipped.
	require.NoError(t, l.Transfer(at(alice, testDay), bob, big_(200)))

	// Toward carol the carve-out does not apply and the check trips.
	err := l.Transfer(at(alice, testDay), carol, big_(200))
	require.ErrorIs(t, err, ErrTransferExceededRestrictedAmount)

	// Any other reservation (here: frozen) disables the carve-out.
	require.NoError(t, l.FreezeIncrease(at(admin, testDay), alice, big_(1)))
	err = l.Transfer(at(alice, testDay), bob, big_(200))
	require.ErrorIs(t, err, ErrTransferExceededRestrictedAmount)
}

func TestMigrateBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	obsolete := l.Rules().Restriction.ObsoletePurposeAddress

	alloc := GenesisAlloc{
		alice: {Balance: big_(1000), LegacyPurpose: big_(250)},
	}
	_, err := l.ApplyGenesis(alloc)
	require.NoError(t, err)

	// Wrong counterparty: no-op.
	require.NoError(t, l.MigrateBalance(at(admin, testDay), alice, bob))
	require.Equal(t, big_(0), l.BalanceOfRestricted(alice, common.Address{}, common.Hash{}))

	require.NoError(t, l.MigrateBalance(at(admin, testDay), alice, obsolete))
	require.Equal(t, big_(250), l.BalanceOfRestricted(alice, obsolete, asset.AnyID))
	require.Equal(t, big_(250), l.BalanceOfRestricted(alice, common.Address{}, common.Hash{}))

	// One-shot: a second migration finds nothing to move.
	require.NoError(t, l.MigrateBalance(at(admin, testDay), alice, obsolete))
	require.Equal(t, big_(250), l.BalanceOfRestricted(alice, obsolete, asset.AnyID))

	err = l.MigrateBalance(at(alice, testDay), alice, obsolete)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRestrictionAuditRecords(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, alice, 1000)

	ch := make(chan inter.AuditRecord, 8)
	sub := l.SubscribeAudit(ch)
	defer sub.Unsubscribe()

	require.NoError(t, l.RestrictionIncrease(at(admin, testDay), alice, bob, big_(300), purposeX))
	rec := <-ch
	require.Equal(t, inter.RecordRestriction, rec.Kind)
	require.Equal(t, alice, rec.Account)
	require.Equal(t, bob, rec.Counterparty)
	require.Equal(t, purposeX, rec.ID)
	require.Equal(t, big_(0), rec.Old)
	require.Equal(t, big_(300), rec.New)
	require.Equal(t, big_(0), rec.OldTotal)
	require.Equal(t, big_(300), rec.NewTotal)
}
