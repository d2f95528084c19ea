package ledger

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// GenesisAccount is one pre-funded account of a deployment.
type GenesisAccount struct {
	Balance *big.Int
	Frozen  *big.Int
	// LegacyPurpose seeds the v1 purpose-keyed reservation, consumed later
	// by MigrateBalance.
	LegacyPurpose *big.Int
}

// GenesisAlloc maps pre-funded addresses to their initial state.
type GenesisAlloc map[common.Address]GenesisAccount

var errNonEmptyLedger = errors.New("genesis applied to a non-empty ledger")

// ApplyGenesis seeds an empty ledger from alloc and returns a deterministic
// hash of the applied state. The hash commits to the rules and every
// account in address order, so two nodes applying the same genesis can
// cross-check roots.
func (l *Ledger) ApplyGenesis(alloc GenesisAlloc) (common.Hash, error) {
	if l.supply.Sign() != 0 || len(l.accounts) != 0 {
		return common.Hash{}, errNonEmptyLedger
	}

	addrs := make([]common.Address, 0, len(alloc))
	for addr := range alloc {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Hex() < addrs[j].Hex()
	})

	supply := new(big.Int)
	for _, addr := range addrs {
		ga := alloc[addr]
		acc := l.mustAccount(addr)
		if ga.Balance != nil {
			acc.balance = new(big.Int).Set(ga.Balance)
			supply.Add(supply, ga.Balance)
		}
		if ga.Frozen != nil {
			acc.frozen = new(big.Int).Set(ga.Frozen)
		}
		if ga.LegacyPurpose != nil {
			acc.legacyPurpose = new(big.Int).Set(ga.LegacyPurpose)
		}
	}
	l.supply = supply
	l.journal.reset()

	return genesisRoot(l.rules.Name, l.rules.NetworkID, addrs, alloc)
}

type genesisAccountRLP struct {
	Addr          common.Address
	Balance       *big.Int
	Frozen        *big.Int
	LegacyPurpose *big.Int
}

func genesisRoot(name string, networkID uint64, addrs []common.Address, alloc GenesisAlloc) (common.Hash, error) {
	entries := make([]genesisAccountRLP, 0, len(addrs))
	for _, addr := range addrs {
		ga := alloc[addr]
		entries = append(entries, genesisAccountRLP{
			Addr:          addr,
			Balance:       bigOrZero(ga.Balance),
			Frozen:        bigOrZero(ga.Frozen),
			LegacyPurpose: bigOrZero(ga.LegacyPurpose),
		})
	}
	enc, err := rlp.EncodeToBytes(struct {
		Name      string
		NetworkID uint64
		Accounts  []genesisAccountRLP
	}{name, networkID, entries})
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
