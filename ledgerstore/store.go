// Package ledgerstore persists ledger state and the audit log in one
// key-value database, namespaced into prefixed tables. Accounts are stored
// as RLP rows keyed by address; the audit log is append-only with
// big-endian sequence keys so iteration replays records in commit order.
package ledgerstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/inter"
	"github.com/rony4d/go-asset-ledger/ledger"
)

var (
	metaKeySupply    = []byte("supply")
	metaKeyAuditSeq  = []byte("audit-seq")
	rulesKey         = []byte("rules")
	rulesUpgradesKey = []byte("rules-upgrades")

	// ErrNoRules means the store was never initialized with SetRules.
	ErrNoRules = errors.New("store holds no rules")
)

// Store is the persistent ledger database.
type Store struct {
	mainDB kvdb.Store

	table struct {
		Rules       kvdb.Store `table:"c"`
		Meta        kvdb.Store `table:"m"`
		Accounts    kvdb.Store `table:"a"`
		Allowances  kvdb.Store `table:"w"`
		Reschedules kvdb.Store `table:"r"`
		AuditLog    kvdb.Store `table:"l"`
	}

	auditSeq uint64

	log *logrus.Entry
}

// NewStore wraps db. The caller keeps ownership of db's lifetime; Close
// closes it.
func NewStore(db kvdb.Store) (*Store, error) {
	s := &Store{
		mainDB: db,
		log:    logrus.WithField("module", "ledgerstore"),
	}
	table.MigrateTables(&s.table, s.mainDB)

	seq, err := s.readAuditSeq()
	if err != nil {
		return nil, err
	}
	s.auditSeq = seq
	return s, nil
}

// NewMemStore creates an in-memory store for tests and tools.
func NewMemStore() *Store {
	s, err := NewStore(memorydb.New())
	if err != nil {
		panic(err) // memorydb reads cannot fail
	}
	return s
}

// Close flushes nothing (writes are synchronous) and closes the database.
func (s *Store) Close() error {
	return s.mainDB.Close()
}

// SetRules persists the deployment rules. The upgrade flags are stored
// separately as a bitmask since they are excluded from the RLP form.
func (s *Store) SetRules(r asset.Rules) error {
	enc, err := rlp.EncodeToBytes((*asset.RulesRLP)(&r))
	if err != nil {
		return err
	}
	if err := s.table.Rules.Put(rulesKey, enc); err != nil {
		return err
	}
	var bits [8]byte
	binary.BigEndian.PutUint64(bits[:], r.Upgrades.Bits())
	return s.table.Rules.Put(rulesUpgradesKey, bits[:])
}

// GetRules loads the persisted deployment rules.
func (s *Store) GetRules() (asset.Rules, error) {
	has, err := s.table.Rules.Has(rulesKey)
	if err != nil {
		return asset.Rules{}, err
	}
	if !has {
		return asset.Rules{}, ErrNoRules
	}
	enc, err := s.table.Rules.Get(rulesKey)
	if err != nil {
		return asset.Rules{}, err
	}
	var r asset.RulesRLP
	if err := rlp.DecodeBytes(enc, &r); err != nil {
		return asset.Rules{}, err
	}
	if has, err = s.table.Rules.Has(rulesUpgradesKey); err != nil {
		return asset.Rules{}, err
	} else if has {
		bits, err := s.table.Rules.Get(rulesUpgradesKey)
		if err != nil {
			return asset.Rules{}, err
		}
		if len(bits) == 8 {
			r.Upgrades = asset.UpgradesOfBits(binary.BigEndian.Uint64(bits))
		}
	}
	return asset.Rules(r), nil
}

// RLP row types. Amounts are non-nil big.Ints; absent overlays encode as
// zero values and are dropped again on load.

type premintRLP struct {
	Amount     uint64
	ReleaseDay uint64
}

type restrictionRLP struct {
	To     common.Address
	ID     common.Hash
	Amount *big.Int
}

type accountRLP struct {
	Balance       *big.Int
	Frozen        *big.Int
	Premints      []premintRLP
	Restrictions  []restrictionRLP
	LegacyPurpose *big.Int
}

// SaveLedger replaces the persisted state with a snapshot of l. The audit
// log is untouched: it is append-only and survives state rewrites.
func (s *Store) SaveLedger(l *ledger.Ledger) error {
	snap := l.Snapshot()

	for _, t := range []kvdb.Store{s.table.Accounts, s.table.Allowances, s.table.Reschedules} {
		if err := dropTable(t); err != nil {
			return err
		}
	}

	for _, acc := range snap.Accounts {
		row := accountRLP{
			Balance:       acc.Balance,
			Frozen:        acc.Frozen,
			LegacyPurpose: acc.LegacyPurpose,
		}
		for _, p := range acc.Premints {
			row.Premints = append(row.Premints, premintRLP{Amount: p.Amount, ReleaseDay: uint64(p.ReleaseDay)})
		}
		for _, r := range acc.Restrictions {
			row.Restrictions = append(row.Restrictions, restrictionRLP{To: r.To, ID: r.ID, Amount: r.Amount})
		}
		enc, err := rlp.EncodeToBytes(&row)
		if err != nil {
			return err
		}
		if err := s.table.Accounts.Put(acc.Address.Bytes(), enc); err != nil {
			return err
		}
	}

	for _, al := range snap.Allowances {
		enc, err := rlp.EncodeToBytes(al.Amount)
		if err != nil {
			return err
		}
		key := append(al.Owner.Bytes(), al.Spender.Bytes()...)
		if err := s.table.Allowances.Put(key, enc); err != nil {
			return err
		}
	}

	for _, rs := range snap.Reschedules {
		var key, val [8]byte
		binary.BigEndian.PutUint64(key[:], uint64(rs.Original))
		binary.BigEndian.PutUint64(val[:], uint64(rs.Target))
		if err := s.table.Reschedules.Put(key[:], val[:]); err != nil {
			return err
		}
	}

	enc, err := rlp.EncodeToBytes(snap.Supply)
	if err != nil {
		return err
	}
	if err := s.table.Meta.Put(metaKeySupply, enc); err != nil {
		return err
	}

	s.log.WithField("accounts", len(snap.Accounts)).Debug("ledger state saved")
	return nil
}

// LoadLedger rebuilds a ledger from the persisted state, using the stored
// rules and the given authority. Every ledger invariant is verified during
// the restore.
func (s *Store) LoadLedger(auth ledger.Authority) (*ledger.Ledger, error) {
	rules, err := s.GetRules()
	if err != nil {
		return nil, err
	}
	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	l := ledger.New(rules, auth)
	if err := l.RestoreSnapshot(snap); err != nil {
		return nil, fmt.Errorf("stored state is inconsistent: %w", err)
	}
	return l, nil
}

func (s *Store) loadSnapshot() (*ledger.Snapshot, error) {
	snap := &ledger.Snapshot{Supply: new(big.Int)}

	if has, err := s.table.Meta.Has(metaKeySupply); err != nil {
		return nil, err
	} else if has {
		enc, err := s.table.Meta.Get(metaKeySupply)
		if err != nil {
			return nil, err
		}
		if err := rlp.DecodeBytes(enc, snap.Supply); err != nil {
			return nil, err
		}
	}

	it := s.table.Accounts.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		var row accountRLP
		if err := rlp.DecodeBytes(it.Value(), &row); err != nil {
			return nil, err
		}
		acc := ledger.AccountSnapshot{
			Address:       common.BytesToAddress(it.Key()),
			Balance:       row.Balance,
			Frozen:        row.Frozen,
			LegacyPurpose: row.LegacyPurpose,
		}
		for _, p := range row.Premints {
			acc.Premints = append(acc.Premints, ledger.PremintRecord{
				Amount: p.Amount, ReleaseDay: inter.Day(p.ReleaseDay),
			})
		}
		for _, r := range row.Restrictions {
			acc.Restrictions = append(acc.Restrictions, ledger.RestrictionSnapshot{
				To: r.To, ID: r.ID, Amount: r.Amount,
			})
		}
		snap.Accounts = append(snap.Accounts, acc)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	ait := s.table.Allowances.NewIterator(nil, nil)
	defer ait.Release()
	for ait.Next() {
		key := ait.Key()
		if len(key) != 2*common.AddressLength {
			return nil, fmt.Errorf("malformed allowance key %x", key)
		}
		amount := new(big.Int)
		if err := rlp.DecodeBytes(ait.Value(), amount); err != nil {
			return nil, err
		}
		snap.Allowances = append(snap.Allowances, ledger.AllowanceSnapshot{
			Owner:   common.BytesToAddress(key[:common.AddressLength]),
			Spender: common.BytesToAddress(key[common.AddressLength:]),
			Amount:  amount,
		})
	}
	if err := ait.Error(); err != nil {
		return nil, err
	}

	rit := s.table.Reschedules.NewIterator(nil, nil)
	defer rit.Release()
	for rit.Next() {
		if len(rit.Key()) != 8 || len(rit.Value()) != 8 {
			return nil, fmt.Errorf("malformed reschedule row %x", rit.Key())
		}
		snap.Reschedules = append(snap.Reschedules, ledger.RescheduleSnapshot{
			Original: inter.Day(binary.BigEndian.Uint64(rit.Key())),
			Target:   inter.Day(binary.BigEndian.Uint64(rit.Value())),
		})
	}
	if err := rit.Error(); err != nil {
		return nil, err
	}

	return snap, nil
}

// AppendAudit persists one committed audit record at the next sequence
// number and returns that number.
func (s *Store) AppendAudit(rec inter.AuditRecord) (uint64, error) {
	enc, err := rec.MarshalBinary()
	if err != nil {
		return 0, err
	}
	seq := s.auditSeq
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], seq)
	if err := s.table.AuditLog.Put(key[:], enc); err != nil {
		return 0, err
	}
	s.auditSeq++
	var seqEnc [8]byte
	binary.BigEndian.PutUint64(seqEnc[:], s.auditSeq)
	if err := s.table.Meta.Put(metaKeyAuditSeq, seqEnc[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

// ForEachAudit replays the audit log in commit order until fn returns
// false.
func (s *Store) ForEachAudit(fn func(seq uint64, rec inter.AuditRecord) bool) error {
	it := s.table.AuditLog.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		var rec inter.AuditRecord
		if err := rec.UnmarshalBinary(it.Value()); err != nil {
			return fmt.Errorf("audit record %x: %w", it.Key(), err)
		}
		if !fn(binary.BigEndian.Uint64(it.Key()), rec) {
			break
		}
	}
	return it.Error()
}

// AuditLen returns the number of persisted audit records.
func (s *Store) AuditLen() uint64 {
	return s.auditSeq
}

func (s *Store) readAuditSeq() (uint64, error) {
	has, err := s.table.Meta.Has(metaKeyAuditSeq)
	if err != nil || !has {
		return 0, err
	}
	enc, err := s.table.Meta.Get(metaKeyAuditSeq)
	if err != nil || len(enc) != 8 {
		return 0, err
	}
	return binary.BigEndian.Uint64(enc), nil
}

func dropTable(t kvdb.Store) error {
	it := t.NewIterator(nil, nil)
	var keys [][]byte
	for it.Next() {
		keys = append(keys, common.CopyBytes(it.Key()))
	}
	// Error must be read before Release: the table iterator zeroes itself
	// on Release and Error would panic afterwards.
	err := it.Error()
	it.Release()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := t.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
