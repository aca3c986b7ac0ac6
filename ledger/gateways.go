package ledger

import (
	"context"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
)

// Clock supplies the current block number; it must never go backwards
type Clock interface {
	CurrentBlock() uint64
}

// MintGateway creates new reward tokens. The ledger only ever calls it after every stake transfer
// of the same call has succeeded.
type MintGateway interface {
	Mint(ctx context.Context, to string, amount *uint256.Int) error
}

// StakeTransferGateway moves stake tokens between an account and the farm's custody. RefundIn and
// ReclaimOut reverse a completed TransferIn or TransferOut when the rest of the call fails, leaving
// balances and allowances as they were before it.
type StakeTransferGateway interface {
	TransferIn(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error
	TransferOut(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error
	RefundIn(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error
	ReclaimOut(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error
}

// Authority decides who may add pools, reweight them and swap their stake tokens
type Authority interface {
	IsPrivileged(caller types.Caller, block uint64) bool
}

// ScriptAuthority grants privilege to whoever satisfies a multisig script
type ScriptAuthority struct {
	Script types.MultisigScript
}

func (a ScriptAuthority) IsPrivileged(caller types.Caller, block uint64) bool {
	return a.Script.IsSatisfied(caller.KeyHashes, block)
}

// AllowList grants privilege by caller id
type AllowList []string

func (a AllowList) IsPrivileged(caller types.Caller, _ uint64) bool {
	for _, id := range a {
		if id != "" && id == caller.ID {
			return true
		}
	}
	return false
}

// Emitter receives every event once the call that produced it has committed
type Emitter interface {
	Emit(types.Event)
}

type NoopEmitter struct{}

func (NoopEmitter) Emit(types.Event) {}

// MultiEmitter fans events out to several emitters in order
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(event types.Event) {
	for _, e := range m {
		e.Emit(event)
	}
}
