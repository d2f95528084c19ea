package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// PremintRecord is one pending premint: tokens already minted into the
// account's balance but reserved until the release day. Amounts are
// fixed-width 64-bit values; the capacity is enforced at the API boundary.
type PremintRecord struct {
	Amount     uint64
	ReleaseDay inter.Day
}

// accountState holds every per-account ledger field: the authoritative raw
// balance plus the three reservation overlays. All fields are mutated only
// through the journaling helpers on Ledger so each call can roll back.
//
// Aggregate consistency maintained at all times:
//   - totalRestricted == sum of all restricted slot values
//   - restrictedToPair[to] == sum of restricted[to][*]
type accountState struct {
	balance *big.Int
	frozen  *big.Int

	// premints is the pending premint list, capped by the rules. Order is
	// not meaningful: pruning swaps with the last element and pops.
	premints []PremintRecord

	// restricted is the v2 reservation ledger: counterparty -> id -> amount.
	restricted map[common.Address]map[common.Hash]*big.Int

	// restrictedToPair aggregates restricted[to] per counterparty.
	restrictedToPair map[common.Address]*big.Int

	// totalRestricted aggregates every reservation of this account.
	totalRestricted *big.Int

	// legacyPurpose is the v1 purpose-keyed reservation retained solely as
	// input for the one-shot MigrateBalance operation.
	legacyPurpose *big.Int
}

func newAccountState() *accountState {
	return &accountState{
		balance:          new(big.Int),
		frozen:           new(big.Int),
		restricted:       make(map[common.Address]map[common.Hash]*big.Int),
		restrictedToPair: make(map[common.Address]*big.Int),
		totalRestricted:  new(big.Int),
		legacyPurpose:    new(big.Int),
	}
}

// empty reports whether every field is zero, letting the ledger drop the
// account from its map and the store skip it.
func (a *accountState) empty() bool {
	return a.balance.Sign() == 0 &&
		a.frozen.Sign() == 0 &&
		len(a.premints) == 0 &&
		a.totalRestricted.Sign() == 0 &&
		a.legacyPurpose.Sign() == 0
}

// restrictedSlot returns the reservation value for (to, id), zero if absent.
func (a *accountState) restrictedSlot(to common.Address, id common.Hash) *big.Int {
	ids := a.restricted[to]
	if ids == nil {
		return new(big.Int)
	}
	v := ids[id]
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// restrictedPair returns the per-counterparty aggregate, zero if absent.
func (a *accountState) restrictedPair(to common.Address) *big.Int {
	v := a.restrictedToPair[to]
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// premintIndex finds the record with the exact (unresolved) release day.
func (a *accountState) premintIndex(day inter.Day) int {
	for i := range a.premints {
		if a.premints[i].ReleaseDay == day {
			return i
		}
	}
	return -1
}

// copyPremints deep-copies the premint list for journaling.
func copyPremints(records []PremintRecord) []PremintRecord {
	if records == nil {
		return nil
	}
	cp := make([]PremintRecord, len(records))
	copy(cp, records)
	return cp
}
