// Package integration provides deployment presets and assembly helpers for
// spinning up complete ledger instances. A preset bundles the rules, the
// genesis allocation and the role grants of one deployment profile, so
// tests and tools can build a working ledger (with its backing store) in
// one call instead of wiring the pieces by hand.
//
// Usage:
//
//	env, err := integration.FakePreset(3).Assemble()
//	// env.Ledger is live, env.Store holds the saved genesis state
package integration

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/ledger"
	"github.com/rony4d/go-asset-ledger/ledgerstore"
)

// Preset describes one deployment profile.
type Preset struct {
	Name  string
	Rules asset.Rules
	Alloc ledger.GenesisAlloc
	Roles map[common.Address][]ledger.Role
}

// Env is an assembled deployment: a live ledger, its authority and the
// store holding the saved genesis state.
type Env struct {
	Ledger      *ledger.Ledger
	Authority   *ledger.StaticAuthority
	Store       *ledgerstore.Store
	GenesisRoot common.Hash
}

// Close releases the ledger's subscriptions and the store.
func (e *Env) Close() error {
	e.Ledger.Stop()
	return e.Store.Close()
}

// Admin is the operator account every preset grants the privileged roles
// to.
var Admin = common.HexToAddress("0x00000000000000000000000000000000000000ad")

// FakeKey derives the i-th deterministic fakenet account address,
// matching across runs so tests can refer to accounts by index.
func FakeKey(i int) common.Address {
	var addr common.Address
	addr[0] = 0xfa
	binary.BigEndian.PutUint32(addr[16:], uint32(i))
	return addr
}

// FakePreset returns a local development profile with n pre-funded
// accounts of 1e18 units each and every privileged role granted to Admin.
func FakePreset(n int) Preset {
	alloc := make(ledger.GenesisAlloc, n)
	for i := 0; i < n; i++ {
		alloc[FakeKey(i)] = ledger.GenesisAccount{
			Balance: new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18)),
		}
	}
	return Preset{
		Name:  "fake",
		Rules: asset.FakeLedgerRules(),
		Alloc: alloc,
		Roles: map[common.Address][]ledger.Role{
			Admin: {ledger.RoleMinter, ledger.RoleFreezer, ledger.RoleRestrictor},
		},
	}
}

// TestPreset returns the public-test profile: test rules, no pre-funded
// accounts, Admin holding the minter role only.
func TestPreset() Preset {
	return Preset{
		Name:  "test",
		Rules: asset.TestLedgerRules(),
		Roles: map[common.Address][]ledger.Role{
			Admin: {ledger.RoleMinter},
		},
	}
}

// MainPreset returns the production profile: main rules, empty allocation,
// no pre-granted roles (role management happens out of band).
func MainPreset() Preset {
	return Preset{
		Name:  "main",
		Rules: asset.MainLedgerRules(),
	}
}

// GetPresetByName looks up a preset by its string identifier, enabling CLI
// selection like --network=fake.
func GetPresetByName(name string) (Preset, error) {
	switch name {
	case "fake":
		return FakePreset(3), nil
	case "test":
		return TestPreset(), nil
	case "main":
		return MainPreset(), nil
	default:
		return Preset{}, fmt.Errorf("unknown preset: %q (valid: fake, test, main)", name)
	}
}

// Assemble builds the deployment: authority with the preset's role grants,
// a ledger with the genesis allocation applied, and an in-memory store
// seeded with the rules and the genesis state.
func (p Preset) Assemble() (*Env, error) {
	auth := ledger.NewStaticAuthority()
	for addr, roles := range p.Roles {
		for _, role := range roles {
			auth.Grant(addr, role)
		}
	}

	l := ledger.New(p.Rules, auth)
	root, err := l.ApplyGenesis(p.Alloc)
	if err != nil {
		l.Stop()
		return nil, fmt.Errorf("apply %s genesis: %w", p.Name, err)
	}

	s := ledgerstore.NewMemStore()
	if err := s.SetRules(p.Rules); err != nil {
		l.Stop()
		return nil, err
	}
	if err := s.SaveLedger(l); err != nil {
		l.Stop()
		return nil, err
	}

	return &Env{
		Ledger:      l,
		Authority:   auth,
		Store:       s,
		GenesisRoot: root,
	}, nil
}
