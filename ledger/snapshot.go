package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// Snapshot is the complete exported ledger state, used by the store for
// persistence and by operator tooling. Slices are ordered
// deterministically (addresses, ids and days ascending) so two snapshots
// of equal state are deeply equal.
type Snapshot struct {
	Supply      *big.Int
	Accounts    []AccountSnapshot
	Allowances  []AllowanceSnapshot
	Reschedules []RescheduleSnapshot
}

// AccountSnapshot is one account's full state. Only the specific
// reservation slots are exported: the pair and total aggregates are
// derived and rebuilt on restore.
type AccountSnapshot struct {
	Address       common.Address
	Balance       *big.Int
	Frozen        *big.Int
	Premints      []PremintRecord
	Restrictions  []RestrictionSnapshot
	LegacyPurpose *big.Int
}

// RestrictionSnapshot is one (to, id) reservation slot.
type RestrictionSnapshot struct {
	To     common.Address
	ID     common.Hash
	Amount *big.Int
}

// AllowanceSnapshot is one stored (owner, spender) allowance.
type AllowanceSnapshot struct {
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

// RescheduleSnapshot is one entry of the global release reschedule map.
type RescheduleSnapshot struct {
	Original inter.Day
	Target   inter.Day
}

var errSnapshotIntoNonEmpty = errors.New("snapshot restored into a non-empty ledger")

// Snapshot exports the full ledger state. Empty accounts are skipped.
func (l *Ledger) Snapshot() *Snapshot {
	s := &Snapshot{
		Supply: new(big.Int).Set(l.supply),
	}

	addrs := make([]common.Address, 0, len(l.accounts))
	for addr, acc := range l.accounts {
		if acc.empty() {
			continue
		}
		addrs = append(addrs, addr)
	}
	sortAddresses(addrs)
	for _, addr := range addrs {
		acc := l.accounts[addr]
		as := AccountSnapshot{
			Address:       addr,
			Balance:       new(big.Int).Set(acc.balance),
			Frozen:        new(big.Int).Set(acc.frozen),
			Premints:      copyPremints(acc.premints),
			LegacyPurpose: new(big.Int).Set(acc.legacyPurpose),
		}
		sort.Slice(as.Premints, func(i, j int) bool {
			return as.Premints[i].ReleaseDay < as.Premints[j].ReleaseDay
		})
		for to, ids := range acc.restricted {
			for id, v := range ids {
				if v.Sign() == 0 {
					continue
				}
				as.Restrictions = append(as.Restrictions, RestrictionSnapshot{
					To: to, ID: id, Amount: new(big.Int).Set(v),
				})
			}
		}
		sort.Slice(as.Restrictions, func(i, j int) bool {
			a, b := as.Restrictions[i], as.Restrictions[j]
			if a.To != b.To {
				return bytes.Compare(a.To.Bytes(), b.To.Bytes()) < 0
			}
			return bytes.Compare(a.ID.Bytes(), b.ID.Bytes()) < 0
		})
		s.Accounts = append(s.Accounts, as)
	}

	for owner, m := range l.allowances {
		for spender, v := range m {
			if v == nil || v.Sign() == 0 {
				continue
			}
			s.Allowances = append(s.Allowances, AllowanceSnapshot{
				Owner: owner, Spender: spender, Amount: new(big.Int).Set(v),
			})
		}
	}
	sort.Slice(s.Allowances, func(i, j int) bool {
		a, b := s.Allowances[i], s.Allowances[j]
		if a.Owner != b.Owner {
			return bytes.Compare(a.Owner.Bytes(), b.Owner.Bytes()) < 0
		}
		return bytes.Compare(a.Spender.Bytes(), b.Spender.Bytes()) < 0
	})

	for orig, target := range l.reschedules {
		s.Reschedules = append(s.Reschedules, RescheduleSnapshot{Original: orig, Target: target})
	}
	sort.Slice(s.Reschedules, func(i, j int) bool {
		return s.Reschedules[i].Original < s.Reschedules[j].Original
	})

	return s
}

// RestoreSnapshot loads exported state into an empty ledger, rebuilding the
// derived reservation aggregates and reschedule reference counters.
func (l *Ledger) RestoreSnapshot(s *Snapshot) error {
	if l.supply.Sign() != 0 || len(l.accounts) != 0 {
		return errSnapshotIntoNonEmpty
	}

	for _, as := range s.Accounts {
		acc := l.mustAccount(as.Address)
		if as.Balance != nil {
			acc.balance = new(big.Int).Set(as.Balance)
		}
		if as.Frozen != nil {
			acc.frozen = new(big.Int).Set(as.Frozen)
		}
		if as.LegacyPurpose != nil {
			acc.legacyPurpose = new(big.Int).Set(as.LegacyPurpose)
		}
		acc.premints = copyPremints(as.Premints)
		for _, rs := range as.Restrictions {
			if rs.Amount == nil || rs.Amount.Sign() == 0 {
				continue
			}
			ids := acc.restricted[rs.To]
			if ids == nil {
				ids = make(map[common.Hash]*big.Int)
				acc.restricted[rs.To] = ids
			}
			ids[rs.ID] = new(big.Int).Set(rs.Amount)

			pair := acc.restrictedToPair[rs.To]
			if pair == nil {
				pair = new(big.Int)
			}
			acc.restrictedToPair[rs.To] = new(big.Int).Add(pair, rs.Amount)
			acc.totalRestricted = new(big.Int).Add(acc.totalRestricted, rs.Amount)
		}
	}

	for _, al := range s.Allowances {
		m := l.allowances[al.Owner]
		if m == nil {
			m = make(map[common.Address]*big.Int)
			l.allowances[al.Owner] = m
		}
		m[al.Spender] = new(big.Int).Set(al.Amount)
	}

	for _, rs := range s.Reschedules {
		l.reschedules[rs.Original] = rs.Target
		l.rescheduleRefs[rs.Target]++
	}

	if s.Supply != nil {
		l.supply = new(big.Int).Set(s.Supply)
	}
	l.journal.reset()
	return l.CheckInvariants()
}

// CheckInvariants verifies every cross-field consistency rule of the
// ledger state. It is cheap relative to state size and intended for
// operator tooling and store loads, not for the per-call hot path (each
// call maintains the invariants by construction).
func (l *Ledger) CheckInvariants() error {
	sum := new(big.Int)
	for addr, acc := range l.accounts {
		if acc.balance.Sign() < 0 || acc.frozen.Sign() < 0 ||
			acc.totalRestricted.Sign() < 0 || acc.legacyPurpose.Sign() < 0 {
			return fmt.Errorf("account %s: negative field", addr.Hex())
		}
		sum.Add(sum, acc.balance)

		total := new(big.Int)
		for to, ids := range acc.restricted {
			pair := new(big.Int)
			for id, v := range ids {
				if v == nil || v.Sign() < 0 {
					return fmt.Errorf("account %s: bad reservation %s/%s", addr.Hex(), to.Hex(), id.Hex())
				}
				pair.Add(pair, v)
			}
			if got := acc.restrictedPair(to); got.Cmp(pair) != 0 {
				return fmt.Errorf("account %s: pair aggregate for %s is %s, slots sum to %s",
					addr.Hex(), to.Hex(), got, pair)
			}
			total.Add(total, pair)
		}
		if acc.totalRestricted.Cmp(total) != 0 {
			return fmt.Errorf("account %s: total restricted is %s, slots sum to %s",
				addr.Hex(), acc.totalRestricted, total)
		}

		seen := map[inter.Day]bool{}
		for _, rec := range acc.premints {
			if seen[rec.ReleaseDay] {
				return fmt.Errorf("account %s: duplicate premint day %d", addr.Hex(), rec.ReleaseDay)
			}
			seen[rec.ReleaseDay] = true
		}
		if max := l.rules.Premint.MaxPendingPremints; len(acc.premints) > int(max) {
			return fmt.Errorf("account %s: %d pending premints exceed the cap %d",
				addr.Hex(), len(acc.premints), max)
		}
	}
	if sum.Cmp(l.supply) != 0 {
		return fmt.Errorf("balances sum to %s, supply is %s", sum, l.supply)
	}

	refs := map[inter.Day]uint32{}
	for orig, target := range l.reschedules {
		if orig == target {
			return fmt.Errorf("reschedule day %d maps to itself", orig)
		}
		if _, chained := l.reschedules[target]; chained {
			return fmt.Errorf("reschedule chain %d -> %d", orig, target)
		}
		refs[target]++
	}
	for day, n := range refs {
		if l.rescheduleRefs[day] != n {
			return fmt.Errorf("reschedule refs for day %d: have %d, want %d", day, l.rescheduleRefs[day], n)
		}
	}
	for day, n := range l.rescheduleRefs {
		if refs[day] != n {
			return fmt.Errorf("stale reschedule ref for day %d", day)
		}
	}
	return nil
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}
