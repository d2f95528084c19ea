package ledger

import "errors"

// Errors are grouped by the remediation they demand. Input-validation and
// capacity errors mean the arguments can never succeed as given.
// Invariant-violation errors mean the caller's view of balances was wrong.
// State-consistency errors mean the caller raced a concurrent configuration
// change and should re-read state before resubmitting. No error is retried
// internally: every operation either fully commits or fully rolls back.
var (
	// Input validation
	ErrZeroAddress             = errors.New("zero address")
	ErrZeroAmount              = errors.New("zero amount")
	ErrNegativeAmount          = errors.New("negative amount")
	ErrZeroID                  = errors.New("zero restriction id")
	ErrZeroPremintAmount       = errors.New("zero premint amount")
	ErrContractBalanceFreezing = errors.New("balance freezing is not supported for contract accounts")

	// Capacity
	ErrPremintAmountOverflow = errors.New("premint amount exceeds the 64-bit record capacity")

	// Invariant violations
	ErrInsufficientBalance       = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance     = errors.New("transfer amount exceeds allowance")
	ErrLackOfFrozenBalance       = errors.New("amount exceeds the frozen balance")
	ErrLackOfRestrictedBalance   = errors.New("amount exceeds the restricted balance")
	ErrPremintNonExistent        = errors.New("no premint exists for the release day")
	ErrPremintInsufficientAmount = errors.New("amount exceeds the premint record")

	// Post-transfer reservation violations
	ErrTransferExceededFrozenAmount     = errors.New("transfer exceeded the frozen amount")
	ErrTransferExceededPremintedAmount  = errors.New("transfer exceeded the preminted amount")
	ErrTransferExceededRestrictedAmount = errors.New("transfer exceeded the restricted amount")

	// State consistency
	ErrMaxPendingPremintsLimit              = errors.New("pending premint limit reached")
	ErrPremintReleaseTimePassed             = errors.New("premint release time already passed")
	ErrPremintReschedulingTimePassed        = errors.New("premint rescheduling target already passed")
	ErrPremintReschedulingAlreadyConfigured = errors.New("premint rescheduling already configured")
	ErrPremintReschedulingChain             = errors.New("premint rescheduling chain is not allowed")
	ErrMaxHooksLimit                        = errors.New("registered hook limit reached")

	// Access / execution model
	ErrUnauthorized    = errors.New("caller lacks the required role")
	ErrBlockedAccount  = errors.New("account is blocked from transacting")
	ErrFeatureDisabled = errors.New("feature is disabled by the deployment rules")
	ErrReentrantCall   = errors.New("reentrant ledger call from a transfer hook")
)
