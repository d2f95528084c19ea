package inter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RecordKind identifies which overlay (or raw ledger operation) produced an
// audit record. The numeric values are part of the serialized format and
// must not be renumbered.
type RecordKind uint8

const (
	// RecordTransfer is a raw balance movement (any transfer channel).
	RecordTransfer RecordKind = iota + 1

	// RecordMint and RecordBurn are total-supply mutations.
	RecordMint
	RecordBurn

	// RecordApproval is an allowance change.
	RecordApproval

	// RecordFrozen is a frozen-balance change (increase/decrease/replace or
	// the frozen-transfer debit).
	RecordFrozen

	// RecordPremint is a premint record change for one release day.
	RecordPremint

	// RecordPremintRescheduled is a change of the global release reschedule map.
	RecordPremintRescheduled

	// RecordRestriction is a change of one (from, to, id) reservation slot.
	// OldTotal/NewTotal carry the per-sender total aggregate around the change.
	RecordRestriction

	// RecordHookFailure captures a hook invocation that failed under the
	// capture-as-event policy.
	RecordHookFailure
)

// AuditRecord describes one committed state mutation. Every mutation the
// ledger performs emits exactly one record per changed slot, always carrying
// both the old and the new value, so an off-chain indexer can reconstruct
// any account's timeline without replaying calls.
//
// Field usage varies by Kind; unused fields stay zero:
//   - Transfer/Mint/Burn: Account=from (or zero), Counterparty=to, New=amount
//   - Approval: Account=owner, Counterparty=spender, Old/New=allowance
//   - Frozen: Account, Old/New=frozen balance
//   - Premint: Account, Day=release day, Old/New=record amount
//   - PremintRescheduled: Day=original day, OldDay/NewDay=targets
//   - Restriction: Account=from, Counterparty=to, ID, Old/New=slot value,
//     OldTotal/NewTotal=per-sender total restricted aggregate
//   - HookFailure: Account=from, Counterparty=to, New=amount, Reason=failure text
type AuditRecord struct {
	Kind RecordKind

	Account      common.Address
	Counterparty common.Address
	ID           common.Hash

	Day    Day
	OldDay Day
	NewDay Day

	Old *big.Int
	New *big.Int

	OldTotal *big.Int
	NewTotal *big.Int

	Reason string
}

// String renders a compact human-readable form, used by the CLI dump command
// and log lines. Not part of the serialized format.
func (r AuditRecord) String() string {
	switch r.Kind {
	case RecordTransfer:
		return fmt.Sprintf("transfer %s -> %s amount=%s", r.Account.Hex(), r.Counterparty.Hex(), r.New)
	case RecordMint:
		return fmt.Sprintf("mint %s amount=%s", r.Counterparty.Hex(), r.New)
	case RecordBurn:
		return fmt.Sprintf("burn %s amount=%s", r.Account.Hex(), r.New)
	case RecordApproval:
		return fmt.Sprintf("approval %s -> %s %s => %s", r.Account.Hex(), r.Counterparty.Hex(), r.Old, r.New)
	case RecordFrozen:
		return fmt.Sprintf("frozen %s %s => %s", r.Account.Hex(), r.Old, r.New)
	case RecordPremint:
		return fmt.Sprintf("premint %s day=%d %s => %s", r.Account.Hex(), r.Day, r.Old, r.New)
	case RecordPremintRescheduled:
		return fmt.Sprintf("reschedule day=%d target %d => %d", r.Day, r.OldDay, r.NewDay)
	case RecordRestriction:
		return fmt.Sprintf("restriction %s -> %s id=%s %s => %s (total %s => %s)",
			r.Account.Hex(), r.Counterparty.Hex(), r.ID.Hex(), r.Old, r.New, r.OldTotal, r.NewTotal)
	case RecordHookFailure:
		return fmt.Sprintf("hook failure %s: %s", r.Counterparty.Hex(), r.Reason)
	}
	return fmt.Sprintf("unknown record kind %d", r.Kind)
}
