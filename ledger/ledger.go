// Package ledger implements the balance-partitioning and transfer-validation
// engine: a fungible-token ledger where every account carries, besides its
// raw balance, up to three overlapping reservation overlays:
//
//   - a frozen balance that ordinary transfers must leave untouched
//   - a list of premint records locked until their (reschedulable) release day
//   - purpose/id-keyed restrictions consumed by transfers to matching
//     counterparties
//
// Every transfer runs the same pipeline: blocked-account pre-check, raw
// balance mutation, then the post-transfer validator comparing the sender's
// remaining balance against each overlay's still-reserved amount, in the
// fixed order frozen -> premint -> restriction. Any violation rolls the
// whole call back through the journal. Registered hooks are dispatched
// around the mutation.
//
// The execution model is single-threaded per call: each exported mutating
// operation commits or aborts atomically, time is supplied by the caller via
// CallContext, and hooks must not reenter the ledger (enforced by a latch).
// The Ledger itself performs no locking; callers serialise access.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/inter"
)

// transferKind distinguishes the transfer channels, because the
// post-transfer validator applies different reservation checks per channel.
type transferKind uint8

const (
	// transferOrdinary covers Transfer, TransferFrom and Burn.
	transferOrdinary transferKind = iota

	// transferFrozenChannel is the dedicated frozen-transfer path: the
	// frozen bucket is debited before the raw move, so the frozen and
	// premint checks do not apply.
	transferFrozenChannel

	// transferRestricted is the TransferWithID path. Validation matches the
	// ordinary channel; the distinction exists for hook/audit reporting.
	transferRestricted
)

// Ledger is the composite token ledger.
type Ledger struct {
	rules asset.Rules
	auth  Authority

	supply     *big.Int
	accounts   map[common.Address]*accountState
	allowances map[common.Address]map[common.Address]*big.Int

	// Global premint rescheduling state: original day -> target day, plus a
	// reverse counter (target day -> number of sources pointing at it) used
	// to enforce the one-hop rule.
	reschedules    map[inter.Day]inter.Day
	rescheduleRefs map[inter.Day]uint32

	journal *journal
	pending []inter.AuditRecord

	feed  event.Feed
	scope event.SubscriptionScope

	hooks []registeredHook
	busy  bool

	log *logrus.Entry
}

// New creates an empty ledger governed by the given rules, with roles and
// the block-list provided by auth.
func New(rules asset.Rules, auth Authority) *Ledger {
	return &Ledger{
		rules:          rules,
		auth:           auth,
		supply:         new(big.Int),
		accounts:       make(map[common.Address]*accountState),
		allowances:     make(map[common.Address]map[common.Address]*big.Int),
		reschedules:    make(map[inter.Day]inter.Day),
		rescheduleRefs: make(map[inter.Day]uint32),
		journal:        newJournal(),
		log:            logrus.WithField("module", "ledger").WithField("net", rules.Name),
	}
}

// Rules returns a copy of the deployment rules.
func (l *Ledger) Rules() asset.Rules {
	return l.rules.Copy()
}

// Stop tears down every audit subscription.
func (l *Ledger) Stop() {
	l.scope.Close()
}

// SubscribeAudit registers ch to receive every committed audit record.
// Records of a failed (rolled back) operation are never delivered.
func (l *Ledger) SubscribeAudit(ch chan<- inter.AuditRecord) event.Subscription {
	return l.scope.Track(l.feed.Subscribe(ch))
}

// run executes one mutating operation atomically: on error every journaled
// mutation is reverted and buffered audit records are discarded; on success
// the journal is committed and the records are published. The busy latch
// rejects reentrance from transfer hooks.
func (l *Ledger) run(op string, fn func() error) error {
	if l.busy {
		return fmt.Errorf("%w: %s", ErrReentrantCall, op)
	}
	l.busy = true
	defer func() { l.busy = false }()

	if err := fn(); err != nil {
		l.journal.revert(l, 0)
		l.pending = l.pending[:0]
		l.log.WithField("op", op).WithError(err).Debug("operation rolled back")
		return err
	}

	l.journal.reset()
	for _, rec := range l.pending {
		l.feed.Send(rec)
	}
	l.pending = l.pending[:0]
	return nil
}

// emit buffers an audit record until the surrounding operation commits.
func (l *Ledger) emit(rec inter.AuditRecord) {
	l.pending = append(l.pending, rec)
}

// account returns the state of addr, or nil if the account has never been
// touched.
func (l *Ledger) account(addr common.Address) *accountState {
	return l.accounts[addr]
}

// mustAccount returns the state of addr, creating it if needed.
func (l *Ledger) mustAccount(addr common.Address) *accountState {
	acc := l.accounts[addr]
	if acc == nil {
		acc = newAccountState()
		l.accounts[addr] = acc
	}
	return acc
}

// Journaling mutation helpers. All writes to account state go through these
// so that run() can unwind a failed operation.

func (l *Ledger) setSupply(v *big.Int) {
	l.journal.append(supplyChange{prev: l.supply})
	l.supply = v
}

func (l *Ledger) setBalance(addr common.Address, v *big.Int) {
	acc := l.mustAccount(addr)
	l.journal.append(balanceChange{account: addr, prev: acc.balance})
	acc.balance = v
}

func (l *Ledger) setFrozen(addr common.Address, v *big.Int) {
	acc := l.mustAccount(addr)
	l.journal.append(frozenChange{account: addr, prev: acc.frozen})
	acc.frozen = v
}

func (l *Ledger) setPremints(addr common.Address, records []PremintRecord) {
	acc := l.mustAccount(addr)
	l.journal.append(premintsChange{account: addr, prev: copyPremints(acc.premints)})
	acc.premints = records
}

func (l *Ledger) setAllowance(owner, spender common.Address, v *big.Int) {
	m := l.allowances[owner]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		l.allowances[owner] = m
	}
	prev, had := m[spender]
	l.journal.append(allowanceChange{owner: owner, spender: spender, prev: prev, had: had})
	m[spender] = v
}

// --- Query surface ---

// TotalSupply returns the current total supply.
func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.supply)
}

// BalanceOf returns the raw total balance of account.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	acc := l.account(account)
	if acc == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(acc.balance)
}

// BalanceOfFrozen returns the frozen part of the account's balance.
func (l *Ledger) BalanceOfFrozen(account common.Address) *big.Int {
	acc := l.account(account)
	if acc == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(acc.frozen)
}

// FreeBalance returns the reference spendable balance at the given time:
// total minus preminted, frozen and restricted amounts, clamped at zero.
func (l *Ledger) FreeBalance(account common.Address, now inter.Timestamp) *big.Int {
	acc := l.account(account)
	if acc == nil {
		return new(big.Int)
	}
	free := new(big.Int).Set(acc.balance)
	free.Sub(free, l.premintedAt(acc, now.Day()))
	free.Sub(free, acc.frozen)
	free.Sub(free, acc.totalRestricted)
	if free.Sign() < 0 {
		free.SetInt64(0)
	}
	return free
}

// Allowance returns the amount spender may move out of owner's balance.
// Trusted spenders (when the upgrade is enabled) report the unbounded
// sentinel without any stored allowance being consulted or mutated.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	if l.rules.Upgrades.TrustedSpenders && l.auth.HasRole(spender, RoleTrustedSpender) {
		return new(big.Int).Set(asset.UnboundedAllowance)
	}
	if m := l.allowances[owner]; m != nil {
		if v := m[spender]; v != nil {
			return new(big.Int).Set(v)
		}
	}
	return new(big.Int)
}

// --- Raw ledger operations ---

// Mint creates amount new tokens on to's balance. Requires the minter role.
func (l *Ledger) Mint(ctx CallContext, to common.Address, amount *big.Int) error {
	return l.run("mint", func() error {
		if err := l.requireRole(ctx, RoleMinter); err != nil {
			return err
		}
		if err := validAmount(amount); err != nil {
			return err
		}
		if to == (common.Address{}) {
			return fmt.Errorf("%w: mint target", ErrZeroAddress)
		}
		if l.auth.IsBlocked(to) {
			return fmt.Errorf("%w: %s", ErrBlockedAccount, to.Hex())
		}
		return l.mint(ctx, to, amount)
	})
}

// mint performs the supply and balance credit without the privilege checks;
// shared by Mint and PremintIncrease.
func (l *Ledger) mint(ctx CallContext, to common.Address, amount *big.Int) error {
	if err := l.dispatchHooks(hookBefore, common.Address{}, to, amount); err != nil {
		return err
	}
	l.setSupply(new(big.Int).Add(l.supply, amount))
	l.setBalance(to, new(big.Int).Add(l.mustAccount(to).balance, amount))
	l.emit(inter.AuditRecord{
		Kind:         inter.RecordMint,
		Counterparty: to,
		New:          new(big.Int).Set(amount),
	})
	return l.dispatchHooks(hookAfter, common.Address{}, to, amount)
}

// Burn destroys amount tokens from the caller's balance. Requires the
// minter role. The post-transfer validator runs: a burn may not eat into
// frozen, preminted or restricted reservations.
func (l *Ledger) Burn(ctx CallContext, amount *big.Int) error {
	return l.run("burn", func() error {
		if err := l.requireRole(ctx, RoleMinter); err != nil {
			return err
		}
		if err := validAmount(amount); err != nil {
			return err
		}
		return l.burn(ctx, ctx.Caller, amount)
	})
}

func (l *Ledger) burn(ctx CallContext, from common.Address, amount *big.Int) error {
	acc := l.account(from)
	if acc == nil || acc.balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: burn %s from %s", ErrInsufficientBalance, amount, from.Hex())
	}
	if err := l.dispatchHooks(hookBefore, from, common.Address{}, amount); err != nil {
		return err
	}
	l.setSupply(new(big.Int).Sub(l.supply, amount))
	l.setBalance(from, new(big.Int).Sub(acc.balance, amount))
	l.emit(inter.AuditRecord{
		Kind:    inter.RecordBurn,
		Account: from,
		New:     new(big.Int).Set(amount),
	})
	if err := l.validateAfterTransfer(from, common.Address{}, transferOrdinary, ctx.Today()); err != nil {
		return err
	}
	return l.dispatchHooks(hookAfter, from, common.Address{}, amount)
}

// Approve sets the caller's allowance for spender.
func (l *Ledger) Approve(ctx CallContext, spender common.Address, amount *big.Int) error {
	return l.run("approve", func() error {
		if spender == (common.Address{}) {
			return fmt.Errorf("%w: spender", ErrZeroAddress)
		}
		if amount.Sign() < 0 {
			return ErrNegativeAmount
		}
		old := l.Allowance(ctx.Caller, spender)
		l.setAllowance(ctx.Caller, spender, new(big.Int).Set(amount))
		l.emit(inter.AuditRecord{
			Kind:         inter.RecordApproval,
			Account:      ctx.Caller,
			Counterparty: spender,
			Old:          old,
			New:          new(big.Int).Set(amount),
		})
		return nil
	})
}

// Transfer moves amount from the caller to to through the ordinary channel.
func (l *Ledger) Transfer(ctx CallContext, to common.Address, amount *big.Int) error {
	return l.run("transfer", func() error {
		return l.transfer(ctx, ctx.Caller, to, amount, transferOrdinary)
	})
}

// TransferFrom moves amount from from to to, spending the caller's
// allowance. Trusted spenders bypass allowance bookkeeping entirely.
func (l *Ledger) TransferFrom(ctx CallContext, from, to common.Address, amount *big.Int) error {
	return l.run("transferFrom", func() error {
		if err := l.spendAllowance(from, ctx.Caller, amount); err != nil {
			return err
		}
		return l.transfer(ctx, from, to, amount, transferOrdinary)
	})
}

// spendAllowance decrements the stored allowance of (owner, spender) by
// amount. For trusted spenders the stored value is never touched.
func (l *Ledger) spendAllowance(owner, spender common.Address, amount *big.Int) error {
	if l.rules.Upgrades.TrustedSpenders && l.auth.HasRole(spender, RoleTrustedSpender) {
		return nil
	}
	current := l.Allowance(owner, spender)
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s allowed %s, need %s", ErrInsufficientAllowance, spender.Hex(), current, amount)
	}
	l.setAllowance(owner, spender, new(big.Int).Sub(current, amount))
	return nil
}

// transfer is the single raw transfer path every channel funnels into:
// validation, blocked pre-check, hook dispatch, the balance mutation, and
// the post-transfer reservation validator.
func (l *Ledger) transfer(ctx CallContext, from, to common.Address, amount *big.Int, kind transferKind) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return fmt.Errorf("%w: transfer party", ErrZeroAddress)
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if l.auth.IsBlocked(from) {
		return fmt.Errorf("%w: sender %s", ErrBlockedAccount, from.Hex())
	}
	if l.auth.IsBlocked(to) {
		return fmt.Errorf("%w: recipient %s", ErrBlockedAccount, to.Hex())
	}

	if err := l.dispatchHooks(hookBefore, from, to, amount); err != nil {
		return err
	}

	fromAcc := l.account(from)
	if fromAcc == nil || fromAcc.balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, from.Hex(), l.BalanceOf(from), amount)
	}
	l.setBalance(from, new(big.Int).Sub(fromAcc.balance, amount))
	l.setBalance(to, new(big.Int).Add(l.mustAccount(to).balance, amount))

	l.emit(inter.AuditRecord{
		Kind:         inter.RecordTransfer,
		Account:      from,
		Counterparty: to,
		New:          new(big.Int).Set(amount),
	})

	if err := l.validateAfterTransfer(from, to, kind, ctx.Today()); err != nil {
		return err
	}

	return l.dispatchHooks(hookAfter, from, to, amount)
}

// requireRole checks the caller against the external authority.
func (l *Ledger) requireRole(ctx CallContext, role Role) error {
	if !l.auth.HasRole(ctx.Caller, role) {
		return fmt.Errorf("%w: %s needs %s", ErrUnauthorized, ctx.Caller.Hex(), role)
	}
	return nil
}

func validAmount(amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 {
		return ErrZeroAmount
	}
	return nil
}
