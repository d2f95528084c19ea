// Package asset defines the ledger rules: the configuration parameters that
// govern balance reservation behavior for a given deployment.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Premint rules (pending-slot cap, release-day policy)
//   - Restriction rules (wildcard id sentinel, legacy-purpose migration target)
//   - Hook rules (registered-hook cap)
//   - Upgrade configuration (RestrictionsV2, TrustedSpenders, Hooks)
//
// The Rules type is the central configuration structure consumed by the
// ledger engine; presets exist for production, test and local fake
// deployments.
package asset

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Network identification constants
const (
	// MainNetworkID identifies the production ledger deployment.
	MainNetworkID uint64 = 0xa4

	// TestNetworkID identifies the public test deployment.
	TestNetworkID uint64 = 0xa42

	// FakeNetworkID identifies local/fake deployments used in testing.
	FakeNetworkID uint64 = 0xa43

	// DefaultMaxPendingPremints is the default cap on the number of pending
	// premint records one account may hold. The limit bounds the cost of
	// the lazy pruning scan that runs on every premint mutation.
	DefaultMaxPendingPremints uint16 = 5

	// Upgrade flags (bit positions for upgrade tracking)
	restrictionsV2Bit  = 1 << 0 // (counterparty,id)-keyed restrictions replace purpose keys
	trustedSpendersBit = 1 << 1 // unbounded-allowance trusted spender role
	hooksBit           = 1 << 2 // external transfer hook dispatch
)

// AnyID is the wildcard restriction identifier: a reservation stored under
// AnyID matches a transfer to the counterparty regardless of the transfer's
// specific id. The all-ones value cannot collide with real ids, which are
// keccak hashes in practice.
var AnyID = common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

// UnboundedAllowance is the allowance value reported for trusted spenders:
// the maximum representable 256-bit amount. It is never stored.
var UnboundedAllowance = math.MaxBig256

// RulesRLP is the RLP-serializable version of Rules, persisted alongside
// ledger state so a store can be re-opened with the rules it was written
// under. The Upgrades field is excluded from RLP encoding.
type RulesRLP struct {
	Name      string // deployment name identifier (e.g., "main", "test", "fake")
	NetworkID uint64 // numeric deployment identifier

	// Premint options - release schedule limits
	Premint PremintRules

	// Restriction options - reservation keying and migration
	Restriction RestrictionRules

	// Hook options - transfer hook dispatch limits
	Hooks HookRules

	// Upgrades - feature flags (not RLP-encoded)
	Upgrades Upgrades `rlp:"-"`
}

// Rules describes the complete configuration of one ledger deployment.
//
// Note: when implementing Copy(), ensure all non-copiable fields (like
// *big.Int) are deep-copied to avoid shared state.
type Rules RulesRLP

// PremintRules bounds the premint overlay.
type PremintRules struct {
	// MaxPendingPremints caps the pending premint record list per account.
	// PremintIncrease calls that would append beyond the cap fail.
	MaxPendingPremints uint16

	// MaxAmount is the capacity of a single premint record. Records are
	// stored as fixed-width 64-bit amounts; larger values are rejected
	// rather than truncated.
	MaxAmount uint64
}

// RestrictionRules configures the restriction overlay.
type RestrictionRules struct {
	// ObsoletePurposeAddress is the well-known counterparty address that
	// triggers the one-shot legacy purpose-balance migration: a
	// MigrateBalance(from, to) call with to equal to this address moves
	// the account's legacy purpose reservation into the (from, to, AnyID)
	// slot. Zero disables migration.
	ObsoletePurposeAddress common.Address
}

// HookRules bounds the hook dispatcher.
type HookRules struct {
	// MaxHooks caps the number of registered transfer hooks. Each hook runs
	// synchronously inside the transfer path, so the cap bounds per-transfer
	// latency.
	MaxHooks uint32
}

// Upgrades tracks which ledger feature upgrades are enabled.
type Upgrades struct {
	RestrictionsV2  bool // (counterparty,id)-keyed reservations; v1 purpose keys exist only as migration input
	TrustedSpenders bool // trusted spender role with unbounded reported allowance
	Hooks           bool // external transfer hook dispatch
}

// Bits packs the upgrade flags into a bitmask, used for compact logging and
// store metadata.
func (u Upgrades) Bits() uint64 {
	v := uint64(0)
	if u.RestrictionsV2 {
		v |= restrictionsV2Bit
	}
	if u.TrustedSpenders {
		v |= trustedSpendersBit
	}
	if u.Hooks {
		v |= hooksBit
	}
	return v
}

// UpgradesOfBits is the inverse of Bits, used when loading rules from a
// store.
func UpgradesOfBits(v uint64) Upgrades {
	return Upgrades{
		RestrictionsV2:  v&restrictionsV2Bit != 0,
		TrustedSpenders: v&trustedSpendersBit != 0,
		Hooks:           v&hooksBit != 0,
	}
}

// MainLedgerRules returns the production configuration: conservative caps,
// every upgrade enabled, migration target set.
func MainLedgerRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Premint: PremintRules{
			MaxPendingPremints: DefaultMaxPendingPremints,
			MaxAmount:          1<<64 - 1,
		},
		Restriction: RestrictionRules{
			ObsoletePurposeAddress: common.HexToAddress("0x00000000000000000000000000000000000b0001"),
		},
		Hooks: HookRules{
			MaxHooks: 8,
		},
		Upgrades: Upgrades{
			RestrictionsV2:  true,
			TrustedSpenders: true,
			Hooks:           true,
		},
	}
}

// TestLedgerRules returns the public-test configuration. It mirrors the
// production parameters so behavior observed on test carries over.
func TestLedgerRules() Rules {
	r := MainLedgerRules()
	r.Name = "test"
	r.NetworkID = TestNetworkID
	return r
}

// FakeLedgerRules returns the local/fake configuration used by tests and
// development tools:
//   - larger premint slot cap so edge cases are easy to set up
//   - fixed, well-known migration target address
//   - all upgrades enabled
func FakeLedgerRules() Rules {
	r := MainLedgerRules()
	r.Name = "fake"
	r.NetworkID = FakeNetworkID
	r.Premint.MaxPendingPremints = 16
	r.Restriction.ObsoletePurposeAddress = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	return r
}

// Copy creates a deep copy of Rules. Rules currently holds no pointer
// fields, so the value copy is already deep; the method exists so callers
// do not need to know that.
func (r Rules) Copy() Rules {
	cp := r
	return cp
}

// String returns a JSON representation of Rules for logging and config dumps.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}

// MaxAmountBig returns the premint capacity as a *big.Int for comparisons
// against ledger amounts.
func (p PremintRules) MaxAmountBig() *big.Int {
	return new(big.Int).SetUint64(p.MaxAmount)
}
