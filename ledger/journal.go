package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// journalEntry is a modification entry in the state change journal that can
// be reverted on demand.
type journalEntry interface {
	// revert undoes the change introduced by this journal entry.
	revert(*Ledger)
}

// journal is the list of state modifications applied since the start of the
// current operation. Every mutation of ledger state appends an entry, so a
// failed post-transfer check (or hook, under the revert policy) unwinds the
// whole call atomically.
type journal struct {
	entries []journalEntry
}

func newJournal() *journal {
	return &journal{}
}

// append inserts a new modification entry at the end of the journal.
func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// snapshot returns the current journal length, to be passed to revert.
func (j *journal) snapshot() int {
	return len(j.entries)
}

// revert undoes all entries after the snapshot, newest first.
func (j *journal) revert(l *Ledger, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(l)
	}
	j.entries = j.entries[:snapshot]
}

// reset drops every entry, called after a successful operation commits.
func (j *journal) reset() {
	j.entries = j.entries[:0]
}

type (
	// Raw ledger changes.
	supplyChange struct {
		prev *big.Int
	}
	balanceChange struct {
		account common.Address
		prev    *big.Int
	}
	allowanceChange struct {
		owner, spender common.Address
		prev           *big.Int
		had            bool
	}

	// Frozen overlay.
	frozenChange struct {
		account common.Address
		prev    *big.Int
	}

	// Premint overlay. The whole record list is snapshotted: lists are
	// short (capped by the rules) and mutations reorder them via
	// swap-and-pop, so element-wise undo is not worth the bookkeeping.
	premintsChange struct {
		account common.Address
		prev    []PremintRecord
	}
	rescheduleChange struct {
		day  inter.Day
		prev inter.Day
		had  bool
	}
	rescheduleRefChange struct {
		day  inter.Day
		prev uint32
	}

	// Restriction overlay.
	restrictionSlotChange struct {
		account, to common.Address
		id          common.Hash
		prev        *big.Int
		had         bool
	}
	restrictionPairChange struct {
		account, to common.Address
		prev        *big.Int
		had         bool
	}
	restrictionTotalChange struct {
		account common.Address
		prev    *big.Int
	}
	legacyPurposeChange struct {
		account common.Address
		prev    *big.Int
	}
)

func (ch supplyChange) revert(l *Ledger) {
	l.supply = ch.prev
}

func (ch balanceChange) revert(l *Ledger) {
	l.mustAccount(ch.account).balance = ch.prev
}

func (ch allowanceChange) revert(l *Ledger) {
	owner := l.allowances[ch.owner]
	if !ch.had {
		delete(owner, ch.spender)
		return
	}
	owner[ch.spender] = ch.prev
}

func (ch frozenChange) revert(l *Ledger) {
	l.mustAccount(ch.account).frozen = ch.prev
}

func (ch premintsChange) revert(l *Ledger) {
	l.mustAccount(ch.account).premints = ch.prev
}

func (ch rescheduleChange) revert(l *Ledger) {
	if !ch.had {
		delete(l.reschedules, ch.day)
		return
	}
	l.reschedules[ch.day] = ch.prev
}

func (ch rescheduleRefChange) revert(l *Ledger) {
	if ch.prev == 0 {
		delete(l.rescheduleRefs, ch.day)
		return
	}
	l.rescheduleRefs[ch.day] = ch.prev
}

func (ch restrictionSlotChange) revert(l *Ledger) {
	acc := l.mustAccount(ch.account)
	ids := acc.restricted[ch.to]
	if !ch.had {
		delete(ids, ch.id)
		if len(ids) == 0 {
			delete(acc.restricted, ch.to)
		}
		return
	}
	if ids == nil {
		ids = make(map[common.Hash]*big.Int)
		acc.restricted[ch.to] = ids
	}
	ids[ch.id] = ch.prev
}

func (ch restrictionPairChange) revert(l *Ledger) {
	acc := l.mustAccount(ch.account)
	if !ch.had {
		delete(acc.restrictedToPair, ch.to)
		return
	}
	acc.restrictedToPair[ch.to] = ch.prev
}

func (ch restrictionTotalChange) revert(l *Ledger) {
	l.mustAccount(ch.account).totalRestricted = ch.prev
}

func (ch legacyPurposeChange) revert(l *Ledger) {
	l.mustAccount(ch.account).legacyPurpose = ch.prev
}
