// Audit records are persisted and hashed in the canonical CSER format
// (see utils/cser): a deterministic, compact encoding where equal records
// always produce byte-identical blobs. Determinism matters because record
// hashes are used as stable references by off-chain indexers.
//
// Layout (version 1):
//  1. Version (uint8)
//  2. Kind (uint8)
//  3. Presence flags for Account / Counterparty / ID (bit stream)
//  4. Address and ID bytes for the fields present
//  5. Day, OldDay, NewDay (compact uint64)
//  6. Old, New, OldTotal, NewTotal (presence flag + BigInt magnitude each)
//  7. Reason (length-prefixed bytes)
package inter

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-asset-ledger/utils/cser"
)

var (
	ErrSerMalformedRecord = errors.New("serialization of malformed audit record")
	ErrSerUnknownVersion  = errors.New("unknown audit record serialization version")
)

// RecordSerVersion is the current serialization version of AuditRecord.
const RecordSerVersion = 1

// MaxReasonLen caps the hook-failure reason text on decode.
const MaxReasonLen = 1024

// MarshalCSER serializes the record into the canonical format.
func (r *AuditRecord) MarshalCSER(w *cser.Writer) error {
	if r.Kind < RecordTransfer || r.Kind > RecordHookFailure {
		return ErrSerMalformedRecord
	}
	w.U8(RecordSerVersion)
	w.U8(uint8(r.Kind))

	emptyAddr := common.Address{}
	emptyHash := common.Hash{}

	w.Bool(r.Account != emptyAddr)
	w.Bool(r.Counterparty != emptyAddr)
	w.Bool(r.ID != emptyHash)
	if r.Account != emptyAddr {
		w.FixedBytes(r.Account.Bytes())
	}
	if r.Counterparty != emptyAddr {
		w.FixedBytes(r.Counterparty.Bytes())
	}
	if r.ID != emptyHash {
		w.FixedBytes(r.ID.Bytes())
	}

	w.U64(uint64(r.Day))
	w.U64(uint64(r.OldDay))
	w.U64(uint64(r.NewDay))

	writeOptBig(w, r.Old)
	writeOptBig(w, r.New)
	writeOptBig(w, r.OldTotal)
	writeOptBig(w, r.NewTotal)

	w.SliceBytes([]byte(r.Reason))
	return nil
}

// UnmarshalCSER deserializes the record from the canonical format.
func (r *AuditRecord) UnmarshalCSER(reader *cser.Reader) error {
	version := reader.U8()
	if version != RecordSerVersion {
		return ErrSerUnknownVersion
	}
	kind := RecordKind(reader.U8())
	if kind < RecordTransfer || kind > RecordHookFailure {
		return ErrSerMalformedRecord
	}
	r.Kind = kind

	hasAccount := reader.Bool()
	hasCounterparty := reader.Bool()
	hasID := reader.Bool()
	if hasAccount {
		reader.FixedBytes(r.Account[:])
	} else {
		r.Account = common.Address{}
	}
	if hasCounterparty {
		reader.FixedBytes(r.Counterparty[:])
	} else {
		r.Counterparty = common.Address{}
	}
	if hasID {
		reader.FixedBytes(r.ID[:])
	} else {
		r.ID = common.Hash{}
	}

	r.Day = Day(reader.U64())
	r.OldDay = Day(reader.U64())
	r.NewDay = Day(reader.U64())

	r.Old = readOptBig(reader)
	r.New = readOptBig(reader)
	r.OldTotal = readOptBig(reader)
	r.NewTotal = readOptBig(reader)

	r.Reason = string(reader.SliceBytes(MaxReasonLen))
	return nil
}

// MarshalBinary packs the record into a single self-delimiting blob.
func (r *AuditRecord) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(r.MarshalCSER)
}

// UnmarshalBinary decodes a blob produced by MarshalBinary, enforcing the
// canonical-encoding rules (truncated or padded inputs are rejected).
func (r *AuditRecord) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, r.UnmarshalCSER)
}

// Hash returns the keccak256 of the canonical encoding, a stable identifier
// for the record.
func (r *AuditRecord) Hash() (common.Hash, error) {
	raw, err := r.MarshalBinary()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}

// writeOptBig stores a presence flag plus the magnitude. A nil pointer and
// an explicit zero are distinct on the wire: overlays use nil for "field not
// applicable to this record kind" and zero for "value dropped to zero".
func writeOptBig(w *cser.Writer, v *big.Int) {
	w.Bool(v != nil)
	if v != nil {
		w.BigInt(v)
	}
}

func readOptBig(r *cser.Reader) *big.Int {
	if !r.Bool() {
		return nil
	}
	return r.BigInt()
}
