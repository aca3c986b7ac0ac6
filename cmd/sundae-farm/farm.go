package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/SundaeSwap-finance/sundae-farm/audit"
	"github.com/SundaeSwap-finance/sundae-farm/bank"
	"github.com/SundaeSwap-finance/sundae-farm/config"
	"github.com/SundaeSwap-finance/sundae-farm/ledger"
	"github.com/SundaeSwap-finance/sundae-farm/logger"
	"github.com/SundaeSwap-finance/sundae-farm/state"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/holiman/uint256"
	cli "gopkg.in/urfave/cli.v1"
)

// fixedClock pins every call of one invocation to the same block
type fixedClock uint64

func (c fixedClock) CurrentBlock() uint64 {
	return uint64(c)
}

// latestBlock follows the last block applied to the store, read on every call, never going below
// floor. A long-running server uses it so pending reward moves with the ledger.
type latestBlock struct {
	store *state.Store
	floor uint64
}

func (c latestBlock) CurrentBlock() uint64 {
	tx := c.store.Begin()
	defer tx.Discard()
	globals, err := tx.Globals()
	if err != nil {
		logger.Get().Warn().Err(err).Msg("Failed to read the last applied block")
		return c.floor
	}
	if globals.LastBlock > c.floor {
		return globals.LastBlock
	}
	return c.floor
}

// farm is everything one command needs, opened from the configuration
type farm struct {
	cfg      *config.Config
	store    *state.Store
	bank     *bank.Bank
	exporter *audit.Exporter
	block    uint64
	pinned   bool
}

func openFarm(ctx *cli.Context) (*farm, error) {
	cfg, err := config.Load(ctx.GlobalString(configFlag.Name))
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.LoggerOptions())

	store, err := state.Open(cfg.Storage.DataDir, state.Options{CacheSize: cfg.Storage.CacheSize})
	if err != nil {
		return nil, fmt.Errorf("failed to open %v: %w", cfg.Storage.DataDir, err)
	}
	f := &farm{cfg: cfg, store: store}
	f.pinned = ctx.GlobalIsSet(blockFlag.Name)

	tx := store.Begin()
	defer tx.Discard()
	rewardAsset := shared.AssetID(cfg.Program.RewardAsset)
	if program, ok, err := tx.Program(); err != nil {
		f.close()
		return nil, err
	} else if ok {
		rewardAsset = program.RewardAsset
	}
	f.bank = bank.New(store, "", rewardAsset)

	globals, err := tx.Globals()
	if err != nil {
		f.close()
		return nil, err
	}
	f.block = globals.LastBlock
	if f.pinned {
		f.block = ctx.GlobalUint64(blockFlag.Name)
	}

	if cfg.Audit.Driver != "" {
		if f.exporter, err = audit.Open(context.Background(), cfg.Audit.Driver, cfg.Audit.DSN); err != nil {
			f.close()
			return nil, err
		}
	}
	return f, nil
}

func (f *farm) ledger() (*ledger.Ledger, error) {
	return f.ledgerWith(fixedClock(f.block))
}

func (f *farm) ledgerWith(clock ledger.Clock) (*ledger.Ledger, error) {
	authority, err := f.cfg.Authority()
	if err != nil {
		return nil, err
	}
	var emitter ledger.Emitter = ledger.NoopEmitter{}
	if f.exporter != nil {
		emitter = ledger.MultiEmitter{f.exporter}
	}
	return ledger.New(f.store, ledger.Dependencies{
		Clock:     clock,
		Authority: authority,
		Minter:    f.bank,
		Custody:   f.bank,
		Emitter:   emitter,
	})
}

func (f *farm) close() {
	if f.exporter != nil {
		if err := f.exporter.Close(); err != nil {
			logger.Get().Warn().Err(err).Msg("Failed to close audit database")
		}
	}
	if err := f.store.Close(); err != nil {
		logger.Get().Warn().Err(err).Msg("Failed to close store")
	}
}

// withFarm opens the farm around a command action
func withFarm(action func(ctx *cli.Context, f *farm) error) func(ctx *cli.Context) error {
	return func(ctx *cli.Context) error {
		f, err := openFarm(ctx)
		if err != nil {
			return err
		}
		defer f.close()
		return action(ctx, f)
	}
}

func caller(ctx *cli.Context) (types.Caller, error) {
	c := types.Caller{ID: strings.TrimSpace(ctx.GlobalString(callerFlag.Name))}
	for _, signer := range ctx.GlobalStringSlice(signerFlag.Name) {
		keyHash, err := hex.DecodeString(strings.TrimSpace(signer))
		if err != nil {
			return types.Caller{}, fmt.Errorf("-signer %q: %w", signer, err)
		}
		c.KeyHashes = append(c.KeyHashes, keyHash)
	}
	return c, nil
}

func account(ctx *cli.Context) string {
	if a := ctx.String(accountFlag.Name); a != "" {
		return a
	}
	return ctx.GlobalString(callerFlag.Name)
}

func amount(ctx *cli.Context) (*uint256.Int, error) {
	x, err := uint256.FromDecimal(ctx.String(amountFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("-amount: %w", err)
	}
	return x, nil
}

func token(ctx *cli.Context) (shared.AssetID, error) {
	t := strings.TrimSpace(ctx.String(tokenFlag.Name))
	if t == "" {
		return "", fmt.Errorf("-token is required")
	}
	return shared.AssetID(t), nil
}
