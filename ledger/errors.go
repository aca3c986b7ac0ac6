package ledger

import (
	"errors"
	"fmt"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/holiman/uint256"
)

var (
	ErrInvalidPool        = errors.New("farm: pool does not exist")
	ErrInsufficientStake  = errors.New("farm: withdrawal exceeds staked amount")
	ErrAccessDenied       = errors.New("farm: caller is not privileged")
	ErrGatewayFailure     = errors.New("farm: gateway call failed")
	ErrArithmeticOverflow = calculation.ErrArithmeticOverflow
	ErrInvalidStakeToken  = errors.New("farm: stake token must be set")
	ErrInvalidOwner       = errors.New("farm: owner must be set")
	ErrStaleBlock         = errors.New("farm: block is older than the last applied block")
	ErrNotInitialized     = errors.New("farm: program not initialized")
	ErrAlreadyInitialized = errors.New("farm: program already initialized")
)

// GatewayError reports which mint or transfer failed; it matches ErrGatewayFailure with errors.Is
type GatewayError struct {
	Op      string
	Token   shared.AssetID
	Account string
	Amount  uint256.Int
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%v: %v %v %v for %v: %v", ErrGatewayFailure, e.Op, e.Amount.Dec(), e.Token, e.Account, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrGatewayFailure, e.Err}
}

// resultLabel buckets an error for the operations metric
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidPool):
		return "invalid_pool"
	case errors.Is(err, ErrInsufficientStake):
		return "insufficient_stake"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrGatewayFailure):
		return "gateway_failure"
	case errors.Is(err, ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, ErrStaleBlock):
		return "stale_block"
	default:
		return "error"
	}
}
