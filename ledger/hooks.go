package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-asset-ledger/inter"
)

// TransferHook is externally supplied logic invoked around every balance
// mutation (transfers, mint, burn). Mint reports a zero from address, burn
// a zero to address. Hooks must not call back into the ledger: the
// transfer path is latched and a reentrant call fails with
// ErrReentrantCall.
type TransferHook interface {
	BeforeTokenTransfer(from, to common.Address, amount *big.Int) error
	AfterTokenTransfer(from, to common.Address, amount *big.Int) error
}

// HookPolicy selects what a hook failure does to the surrounding operation.
type HookPolicy uint8

const (
	// HookPolicyRevert aborts the whole operation on hook error.
	HookPolicyRevert HookPolicy = iota
	// HookPolicyCaptureEvent records the failure as an audit record and
	// lets the operation proceed.
	HookPolicyCaptureEvent
)

type registeredHook struct {
	name   string
	hook   TransferHook
	policy HookPolicy
}

type hookPhase uint8

const (
	hookBefore hookPhase = iota
	hookAfter
)

// HookError reports which hook failed and in which phase.
type HookError struct {
	Name   string
	Before bool
	Err    error
}

func (e *HookError) Error() string {
	phase := "after"
	if e.Before {
		phase = "before"
	}
	return fmt.Sprintf("hook %q failed (%s-transfer): %v", e.Name, phase, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// RegisterHook attaches a named transfer hook. Requires the hooks upgrade;
// the number of hooks is capped by the rules.
func (l *Ledger) RegisterHook(name string, hook TransferHook, policy HookPolicy) error {
	if !l.rules.Upgrades.Hooks {
		return fmt.Errorf("%w: hooks", ErrFeatureDisabled)
	}
	if max := l.rules.Hooks.MaxHooks; max != 0 && len(l.hooks) >= int(max) {
		return fmt.Errorf("%w: %d registered", ErrMaxHooksLimit, len(l.hooks))
	}
	l.hooks = append(l.hooks, registeredHook{name: name, hook: hook, policy: policy})
	return nil
}

// dispatchHooks runs every registered hook for one phase of a mutation.
// Revert-policy failures abort; capture-policy failures become audit
// records delivered with the (still successful) operation.
func (l *Ledger) dispatchHooks(phase hookPhase, from, to common.Address, amount *big.Int) error {
	for _, reg := range l.hooks {
		var err error
		if phase == hookBefore {
			err = reg.hook.BeforeTokenTransfer(from, to, amount)
		} else {
			err = reg.hook.AfterTokenTransfer(from, to, amount)
		}
		if err == nil {
			continue
		}
		if reg.policy == HookPolicyRevert {
			return &HookError{Name: reg.name, Before: phase == hookBefore, Err: err}
		}
		l.log.WithField("hook", reg.name).WithError(err).Warn("transfer hook failed, captured")
		l.emit(inter.AuditRecord{
			Kind:         inter.RecordHookFailure,
			Account:      from,
			Counterparty: to,
			New:          new(big.Int).Set(amount),
			Reason:       (&HookError{Name: reg.name, Before: phase == hookBefore, Err: err}).Error(),
		})
	}
	return nil
}
