package launcher

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/rony4d/go-asset-ledger/inter"
	"github.com/rony4d/go-asset-ledger/ledger"
)

// The state file is the JSON export of a ledger snapshot. Amounts use the
// geth hex-or-decimal convention so hand-written files stay readable.

type stateFile struct {
	Network     string                 `json:"network"`
	Supply      *math.HexOrDecimal256  `json:"supply"`
	Accounts    []stateAccount         `json:"accounts"`
	Allowances  []stateAllowance       `json:"allowances,omitempty"`
	Reschedules map[uint64]uint64      `json:"reschedules,omitempty"`
}

type stateAccount struct {
	Address       common.Address        `json:"address"`
	Balance       *math.HexOrDecimal256 `json:"balance"`
	Frozen        *math.HexOrDecimal256 `json:"frozen,omitempty"`
	Premints      []statePremint        `json:"premints,omitempty"`
	Restrictions  []stateRestriction    `json:"restrictions,omitempty"`
	LegacyPurpose *math.HexOrDecimal256 `json:"legacyPurpose,omitempty"`
}

type statePremint struct {
	Amount     uint64 `json:"amount"`
	ReleaseDay uint64 `json:"releaseDay"`
}

type stateRestriction struct {
	To     common.Address        `json:"to"`
	ID     common.Hash           `json:"id"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type stateAllowance struct {
	Owner   common.Address        `json:"owner"`
	Spender common.Address        `json:"spender"`
	Amount  *math.HexOrDecimal256 `json:"amount"`
}

// genesisFile is the allocation input of the init command.
type genesisFile struct {
	Alloc map[common.Address]genesisAccount `json:"alloc"`
}

type genesisAccount struct {
	Balance       *math.HexOrDecimal256 `json:"balance,omitempty"`
	Frozen        *math.HexOrDecimal256 `json:"frozen,omitempty"`
	LegacyPurpose *math.HexOrDecimal256 `json:"legacyPurpose,omitempty"`
}

func writeState(path, network string, snap *ledger.Snapshot) error {
	sf := stateFile{
		Network: network,
		Supply:  (*math.HexOrDecimal256)(snap.Supply),
	}
	for _, acc := range snap.Accounts {
		sa := stateAccount{
			Address:       acc.Address,
			Balance:       (*math.HexOrDecimal256)(acc.Balance),
			Frozen:        optBig(acc.Frozen),
			LegacyPurpose: optBig(acc.LegacyPurpose),
		}
		for _, p := range acc.Premints {
			sa.Premints = append(sa.Premints, statePremint{Amount: p.Amount, ReleaseDay: uint64(p.ReleaseDay)})
		}
		for _, r := range acc.Restrictions {
			sa.Restrictions = append(sa.Restrictions, stateRestriction{
				To: r.To, ID: r.ID, Amount: (*math.HexOrDecimal256)(r.Amount),
			})
		}
		sf.Accounts = append(sf.Accounts, sa)
	}
	for _, al := range snap.Allowances {
		sf.Allowances = append(sf.Allowances, stateAllowance{
			Owner: al.Owner, Spender: al.Spender, Amount: (*math.HexOrDecimal256)(al.Amount),
		})
	}
	if len(snap.Reschedules) > 0 {
		sf.Reschedules = make(map[uint64]uint64, len(snap.Reschedules))
		for _, rs := range snap.Reschedules {
			sf.Reschedules[uint64(rs.Original)] = uint64(rs.Target)
		}
	}

	enc, err := json.MarshalIndent(&sf, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, append(enc, '\n'), 0o644)
}

func readState(path string) (string, *ledger.Snapshot, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	var sf stateFile
	if err := json.Unmarshal(enc, &sf); err != nil {
		return "", nil, fmt.Errorf("malformed state file %s: %w", path, err)
	}

	snap := &ledger.Snapshot{Supply: bigOrZero(sf.Supply)}
	for _, sa := range sf.Accounts {
		acc := ledger.AccountSnapshot{
			Address:       sa.Address,
			Balance:       bigOrZero(sa.Balance),
			Frozen:        bigOrZero(sa.Frozen),
			LegacyPurpose: bigOrZero(sa.LegacyPurpose),
		}
		for _, p := range sa.Premints {
			acc.Premints = append(acc.Premints, ledger.PremintRecord{
				Amount: p.Amount, ReleaseDay: inter.Day(p.ReleaseDay),
			})
		}
		for _, r := range sa.Restrictions {
			acc.Restrictions = append(acc.Restrictions, ledger.RestrictionSnapshot{
				To: r.To, ID: r.ID, Amount: bigOrZero(r.Amount),
			})
		}
		snap.Accounts = append(snap.Accounts, acc)
	}
	for _, al := range sf.Allowances {
		snap.Allowances = append(snap.Allowances, ledger.AllowanceSnapshot{
			Owner: al.Owner, Spender: al.Spender, Amount: bigOrZero(al.Amount),
		})
	}
	for orig, target := range sf.Reschedules {
		snap.Reschedules = append(snap.Reschedules, ledger.RescheduleSnapshot{
			Original: inter.Day(orig), Target: inter.Day(target),
		})
	}
	return sf.Network, snap, nil
}

func readGenesis(path string) (ledger.GenesisAlloc, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var gf genesisFile
	if err := json.Unmarshal(enc, &gf); err != nil {
		return nil, fmt.Errorf("malformed genesis file %s: %w", path, err)
	}
	alloc := make(ledger.GenesisAlloc, len(gf.Alloc))
	for addr, ga := range gf.Alloc {
		alloc[addr] = ledger.GenesisAccount{
			Balance:       (*big.Int)(ga.Balance),
			Frozen:        (*big.Int)(ga.Frozen),
			LegacyPurpose: (*big.Int)(ga.LegacyPurpose),
		}
	}
	return alloc, nil
}

func optBig(v *big.Int) *math.HexOrDecimal256 {
	if v == nil || v.Sign() == 0 {
		return nil
	}
	return (*math.HexOrDecimal256)(v)
}

func bigOrZero(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return (*big.Int)(v)
}
