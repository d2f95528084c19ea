package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// Role is a capability required by privileged ledger operations. Role
// administration (granting, revoking, ownership) lives outside the ledger;
// the engine only ever asks whether a caller holds a role right now.
type Role uint8

const (
	// RoleMinter may mint, burn and manage premint schedules.
	RoleMinter Role = iota + 1

	// RoleFreezer may change frozen balances and move frozen tokens.
	RoleFreezer

	// RoleRestrictor may manage purpose/id reservations and perform
	// restricted transfers.
	RoleRestrictor

	// RoleTrustedSpender bypasses allowance bookkeeping: the ledger reports
	// an unbounded allowance for holders and never decrements it.
	RoleTrustedSpender
)

func (r Role) String() string {
	switch r {
	case RoleMinter:
		return "minter"
	case RoleFreezer:
		return "freezer"
	case RoleRestrictor:
		return "restrictor"
	case RoleTrustedSpender:
		return "trusted-spender"
	}
	return fmt.Sprintf("role-%d", uint8(r))
}

// Authority is the narrow interface to the external access-control
// collaborator. The ledger never stores role or block-list state itself.
type Authority interface {
	// HasRole reports whether addr currently holds the role.
	HasRole(addr common.Address, role Role) bool

	// IsBlocked reports whether addr is currently barred from transacting.
	IsBlocked(addr common.Address) bool

	// IsContract reports whether addr is a contract account. Frozen-balance
	// operations refuse contract targets.
	IsContract(addr common.Address) bool
}

// CallContext carries the per-call environment into every operation: the
// caller identity (checked against Authority for privileged calls) and the
// external current time, from which the current day is derived. The ledger
// has no internal clock.
type CallContext struct {
	Caller common.Address
	Now    inter.Timestamp
}

// Today returns the current day index of the call.
func (c CallContext) Today() inter.Day {
	return c.Now.Day()
}

// StaticAuthority is a map-backed Authority for tests, tools and genesis
// bootstrapping. It is not safe for concurrent mutation.
type StaticAuthority struct {
	roles     map[common.Address]map[Role]bool
	blocked   map[common.Address]bool
	contracts map[common.Address]bool
}

// NewStaticAuthority creates an empty StaticAuthority.
func NewStaticAuthority() *StaticAuthority {
	return &StaticAuthority{
		roles:     make(map[common.Address]map[Role]bool),
		blocked:   make(map[common.Address]bool),
		contracts: make(map[common.Address]bool),
	}
}

// Grant gives addr the role. Returns the authority for chaining.
func (a *StaticAuthority) Grant(addr common.Address, role Role) *StaticAuthority {
	if a.roles[addr] == nil {
		a.roles[addr] = make(map[Role]bool)
	}
	a.roles[addr][role] = true
	return a
}

// Revoke removes the role from addr.
func (a *StaticAuthority) Revoke(addr common.Address, role Role) {
	delete(a.roles[addr], role)
}

// Block bars addr from transacting.
func (a *StaticAuthority) Block(addr common.Address) *StaticAuthority {
	a.blocked[addr] = true
	return a
}

// Unblock lifts the bar from addr.
func (a *StaticAuthority) Unblock(addr common.Address) {
	delete(a.blocked, addr)
}

// MarkContract flags addr as a contract account.
func (a *StaticAuthority) MarkContract(addr common.Address) *StaticAuthority {
	a.contracts[addr] = true
	return a
}

func (a *StaticAuthority) HasRole(addr common.Address, role Role) bool {
	return a.roles[addr][role]
}

func (a *StaticAuthority) IsBlocked(addr common.Address) bool {
	return a.blocked[addr]
}

func (a *StaticAuthority) IsContract(addr common.Address) bool {
	return a.contracts[addr]
}
