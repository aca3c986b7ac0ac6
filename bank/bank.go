// Package bank is a minimal fungible token book kept in the farm's own store. It plays both
// gateways for the ledger: custody of stake tokens moves through allowances the way a token
// contract would, and the reward asset is minted on demand.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/SundaeSwap-finance/sundae-farm/state"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrInvalidAccount        = errors.New("bank: account must be set")
)

// DefaultCustodyAccount holds every stake token deposited into the farm
const DefaultCustodyAccount = "farm"

type Bank struct {
	mutex       sync.Mutex
	store       *state.Store
	custody     string
	rewardAsset shared.AssetID
}

func New(store *state.Store, custody string, rewardAsset shared.AssetID) *Bank {
	if custody == "" {
		custody = DefaultCustodyAccount
	}
	return &Bank{store: store, custody: custody, rewardAsset: rewardAsset}
}

func (b *Bank) CustodyAccount() string {
	return b.custody
}

func (b *Bank) update(ctx context.Context, fn func(tx *state.Tx) error) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := b.store.Begin()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func credit(tx *state.Tx, asset shared.AssetID, account string, amount *uint256.Int) error {
	balance, err := tx.Balance(asset, account)
	if err != nil {
		return err
	}
	sum, err := calculation.SafeAdd(&balance, amount)
	if err != nil {
		return err
	}
	return tx.PutBalance(asset, account, *sum)
}

func debit(tx *state.Tx, asset shared.AssetID, account string, amount *uint256.Int) error {
	balance, err := tx.Balance(asset, account)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %v holds %v %v, needs %v", ErrInsufficientBalance, account, balance.Dec(), asset, amount.Dec())
	}
	return tx.PutBalance(asset, account, *new(uint256.Int).Sub(&balance, amount))
}

func issue(tx *state.Tx, asset shared.AssetID, account string, amount *uint256.Int) error {
	if account == "" {
		return ErrInvalidAccount
	}
	supply, err := tx.Supply(asset)
	if err != nil {
		return err
	}
	total, err := calculation.SafeAdd(&supply, amount)
	if err != nil {
		return err
	}
	if err := tx.PutSupply(asset, *total); err != nil {
		return err
	}
	return credit(tx, asset, account, amount)
}

func transfer(tx *state.Tx, asset shared.AssetID, from, to string, amount *uint256.Int) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if err := debit(tx, asset, from, amount); err != nil {
		return err
	}
	return credit(tx, asset, to, amount)
}

// Fund issues any asset straight into an account, for seeding balances
func (b *Bank) Fund(ctx context.Context, asset shared.AssetID, account string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		return issue(tx, asset, account, amount)
	})
}

// Approve lets the farm's custody pull up to amount of asset from owner. The all-ones amount never
// runs down.
func (b *Bank) Approve(ctx context.Context, asset shared.AssetID, owner string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		if owner == "" {
			return ErrInvalidAccount
		}
		return tx.PutAllowance(asset, owner, b.custody, *amount)
	})
}

func (b *Bank) Transfer(ctx context.Context, asset shared.AssetID, from, to string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		return transfer(tx, asset, from, to, amount)
	})
}

// Mint issues the reward asset
func (b *Bank) Mint(ctx context.Context, to string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		return issue(tx, b.rewardAsset, to, amount)
	})
}

func (b *Bank) TransferIn(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		allowance, err := tx.Allowance(token, from, b.custody)
		if err != nil {
			return err
		}
		if allowance.Lt(amount) {
			return fmt.Errorf("%w: %v approved %v %v, needs %v", ErrInsufficientAllowance, from, allowance.Dec(), token, amount.Dec())
		}
		if !isUnlimited(&allowance) {
			if err := tx.PutAllowance(token, from, b.custody, *new(uint256.Int).Sub(&allowance, amount)); err != nil {
				return err
			}
		}
		return transfer(tx, token, from, b.custody, amount)
	})
}

func (b *Bank) TransferOut(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		return transfer(tx, token, b.custody, to, amount)
	})
}

// RefundIn hands back a TransferIn whose call did not go through, restoring the allowance it drew
func (b *Bank) RefundIn(ctx context.Context, token shared.AssetID, to string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		allowance, err := tx.Allowance(token, to, b.custody)
		if err != nil {
			return err
		}
		if !isUnlimited(&allowance) {
			restored, overflow := new(uint256.Int).AddOverflow(&allowance, amount)
			if overflow {
				restored = Unlimited()
			}
			if err := tx.PutAllowance(token, to, b.custody, *restored); err != nil {
				return err
			}
		}
		return transfer(tx, token, b.custody, to, amount)
	})
}

// ReclaimOut takes back a TransferOut whose call did not go through; no allowance is needed or used
func (b *Bank) ReclaimOut(ctx context.Context, token shared.AssetID, from string, amount *uint256.Int) error {
	return b.update(ctx, func(tx *state.Tx) error {
		return transfer(tx, token, from, b.custody, amount)
	})
}

// Allowance is what custody may still pull from owner
func (b *Bank) Allowance(asset shared.AssetID, owner string) (*uint256.Int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	tx := b.store.Begin()
	defer tx.Discard()
	allowance, err := tx.Allowance(asset, owner, b.custody)
	return &allowance, err
}

func (b *Bank) Balance(asset shared.AssetID, account string) (*uint256.Int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	tx := b.store.Begin()
	defer tx.Discard()
	balance, err := tx.Balance(asset, account)
	return &balance, err
}

func (b *Bank) Supply(asset shared.AssetID) (*uint256.Int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	tx := b.store.Begin()
	defer tx.Discard()
	supply, err := tx.Supply(asset)
	return &supply, err
}

func Unlimited() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func isUnlimited(x *uint256.Int) bool {
	return x.Eq(Unlimited())
}
