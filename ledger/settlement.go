package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/shared"
	"github.com/holiman/uint256"
)

const (
	opTransferIn  = "transferIn"
	opTransferOut = "transferOut"
	opMint        = "mint"
)

type step struct {
	op      string
	token   shared.AssetID
	account string
	amount  uint256.Int
}

// settlement collects the gateway calls a ledger call needs. They run after all bookkeeping is
// staged: stake pulled in first, stake paid out next, reward minted last.
type settlement struct {
	pulls  []step
	pushes []step
	mints  []step
}

func (s *settlement) pull(token shared.AssetID, from string, amount *uint256.Int) {
	if !amount.IsZero() {
		s.pulls = append(s.pulls, step{op: opTransferIn, token: token, account: from, amount: *amount})
	}
}

func (s *settlement) push(token shared.AssetID, to string, amount *uint256.Int) {
	if !amount.IsZero() {
		s.pushes = append(s.pushes, step{op: opTransferOut, token: token, account: to, amount: *amount})
	}
}

func (s *settlement) mint(token shared.AssetID, to string, amount *uint256.Int) {
	if !amount.IsZero() {
		s.mints = append(s.mints, step{op: opMint, token: token, account: to, amount: *amount})
	}
}

func (s settlement) steps() []step {
	steps := make([]step, 0, len(s.pulls)+len(s.pushes)+len(s.mints))
	steps = append(steps, s.pulls...)
	steps = append(steps, s.pushes...)
	return append(steps, s.mints...)
}

func (l *Ledger) execute(ctx context.Context, s step) error {
	switch s.op {
	case opTransferIn:
		return l.custody.TransferIn(ctx, s.token, s.account, &s.amount)
	case opTransferOut:
		return l.custody.TransferOut(ctx, s.token, s.account, &s.amount)
	case opMint:
		return l.minter.Mint(ctx, s.account, &s.amount)
	default:
		return fmt.Errorf("unknown gateway operation %v", s.op)
	}
}

func (l *Ledger) settle(ctx context.Context, o *op) error {
	var done []step
	for _, s := range o.plan.steps() {
		if err := l.execute(ctx, s); err != nil {
			cause := &GatewayError{Op: s.op, Token: s.token, Account: s.account, Amount: s.amount, Err: err}
			return l.compensate(ctx, o, done, cause)
		}
		if s.op == opMint {
			o.minted.Add(&o.minted, &s.amount)
		}
		done = append(done, s)
	}
	return nil
}

// compensate undoes the completed transfers in reverse order. A mint can't be taken back; since
// mints run last, only a failed commit ever leaves one behind.
func (l *Ledger) compensate(ctx context.Context, o *op, done []step, cause error) error {
	errs := []error{cause}
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		var err error
		switch s.op {
		case opTransferIn:
			err = l.custody.RefundIn(ctx, s.token, s.account, &s.amount)
		case opTransferOut:
			err = l.custody.ReclaimOut(ctx, s.token, s.account, &s.amount)
		case opMint:
			l.logger.Error().
				Str("op", o.kind).
				Str("account", s.account).
				Str("amount", s.amount.Dec()).
				Msg("Reward was minted for a call that did not commit")
			continue
		}
		if err != nil {
			l.logger.Error().
				Err(err).
				Str("op", o.kind).
				Str("step", s.op).
				Str("token", s.token.String()).
				Str("account", s.account).
				Str("amount", s.amount.Dec()).
				Msg("Failed to compensate transfer")
			errs = append(errs, fmt.Errorf("failed to compensate %v of %v for %v: %w", s.op, s.token, s.account, err))
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}
