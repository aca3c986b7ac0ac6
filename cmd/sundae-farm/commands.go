package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SundaeSwap-finance/sundae-farm/api"
	"github.com/SundaeSwap-finance/sundae-farm/bank"
	"github.com/SundaeSwap-finance/sundae-farm/ledger"
	"github.com/SundaeSwap-finance/sundae-farm/logger"
	"github.com/SundaeSwap-finance/sundae-farm/metrics"
	cli "gopkg.in/urfave/cli.v1"
)

func commands() []cli.Command {
	return []cli.Command{
		{Name: "init", Usage: "record the configured emission program in a new data directory", Action: withFarm(initAction)},
		{Name: "fund", Usage: "issue tokens into an account", Flags: []cli.Flag{tokenFlag, accountFlag, amountFlag}, Action: withFarm(fundAction)},
		{Name: "approve", Usage: "let the farm pull the caller's tokens", Flags: []cli.Flag{tokenFlag, amountFlag, unlimitedFlag}, Action: withFarm(approveAction)},
		{Name: "add-pool", Usage: "add a pool (privileged)", Flags: []cli.Flag{allocFlag, tokenFlag, withUpdateFlag}, Action: withFarm(addPoolAction)},
		{Name: "set-alloc", Usage: "change a pool's allocation points (privileged)", Flags: []cli.Flag{poolFlag, allocFlag, withUpdateFlag}, Action: withFarm(setAllocAction)},
		{Name: "change-token", Usage: "swap a pool's stake token (privileged)", Flags: []cli.Flag{poolFlag, tokenFlag}, Action: withFarm(changeTokenAction)},
		{Name: "deposit", Usage: "stake into a pool, claiming pending reward", Flags: []cli.Flag{poolFlag, amountFlag}, Action: withFarm(depositAction)},
		{Name: "withdraw", Usage: "unstake from a pool, claiming pending reward", Flags: []cli.Flag{poolFlag, amountFlag}, Action: withFarm(withdrawAction)},
		{Name: "emergency-withdraw", Usage: "unstake everything from a pool, forfeiting reward", Flags: []cli.Flag{poolFlag}, Action: withFarm(emergencyWithdrawAction)},
		{Name: "update", Usage: "bring one pool (or every pool) current", Flags: []cli.Flag{poolFlag}, Action: withFarm(updateAction)},
		{Name: "pending", Usage: "show the reward an account could claim", Flags: []cli.Flag{poolFlag, accountFlag}, Action: withFarm(pendingAction)},
		{Name: "pools", Usage: "list every pool", Action: withFarm(poolsAction)},
		{Name: "balance", Usage: "show an account's token balance", Flags: []cli.Flag{tokenFlag, accountFlag}, Action: withFarm(balanceAction)},
		{Name: "events", Usage: "list journaled events", Flags: []cli.Flag{fromFlag, limitFlag}, Action: withFarm(eventsAction)},
		{Name: "verify", Usage: "check the event journal's hash chain", Action: withFarm(verifyAction)},
		{Name: "export", Usage: "copy new journal events to the audit database", Action: withFarm(exportAction)},
		{Name: "serve", Usage: "serve the read-only HTTP API; pending is reported at the last applied block, or --block if later", Flags: []cli.Flag{listenFlag}, Action: withFarm(serveAction)},
	}
}

func initAction(ctx *cli.Context, f *farm) error {
	program, err := f.cfg.ToProgram()
	if err != nil {
		return err
	}
	if err := ledger.Initialize(f.store, program); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "initialized %v rewarding %v %v per block\n", program.ID, program.RewardPerBlock.Dec(), program.RewardAsset)
	return nil
}

func fundAction(ctx *cli.Context, f *farm) error {
	t, err := token(ctx)
	if err != nil {
		return err
	}
	x, err := amount(ctx)
	if err != nil {
		return err
	}
	return f.bank.Fund(context.Background(), t, account(ctx), x)
}

func approveAction(ctx *cli.Context, f *farm) error {
	t, err := token(ctx)
	if err != nil {
		return err
	}
	x, err := amount(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(unlimitedFlag.Name) {
		x = bank.Unlimited()
	}
	return f.bank.Approve(context.Background(), t, ctx.GlobalString(callerFlag.Name), x)
}

func addPoolAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	c, err := caller(ctx)
	if err != nil {
		return err
	}
	t, err := token(ctx)
	if err != nil {
		return err
	}
	id, err := l.AddPool(context.Background(), c, ctx.Uint64(allocFlag.Name), t, ctx.BoolT(withUpdateFlag.Name))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "pool %v\n", id)
	return nil
}

func setAllocAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	c, err := caller(ctx)
	if err != nil {
		return err
	}
	return l.SetAllocPoint(context.Background(), c, ctx.Uint64(poolFlag.Name), ctx.Uint64(allocFlag.Name), ctx.BoolT(withUpdateFlag.Name))
}

func changeTokenAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	c, err := caller(ctx)
	if err != nil {
		return err
	}
	t, err := token(ctx)
	if err != nil {
		return err
	}
	return l.ChangeStakeToken(context.Background(), c, ctx.Uint64(poolFlag.Name), t)
}

func depositAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	x, err := amount(ctx)
	if err != nil {
		return err
	}
	reward, err := l.Deposit(context.Background(), ctx.Uint64(poolFlag.Name), ctx.GlobalString(callerFlag.Name), x)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "reward %v\n", reward.Dec())
	return nil
}

func withdrawAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	x, err := amount(ctx)
	if err != nil {
		return err
	}
	reward, err := l.Withdraw(context.Background(), ctx.Uint64(poolFlag.Name), ctx.GlobalString(callerFlag.Name), x)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "reward %v\n", reward.Dec())
	return nil
}

func emergencyWithdrawAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	returned, err := l.EmergencyWithdraw(context.Background(), ctx.Uint64(poolFlag.Name), ctx.GlobalString(callerFlag.Name))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "returned %v\n", returned.Dec())
	return nil
}

func updateAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	if ctx.IsSet(poolFlag.Name) {
		return l.UpdatePool(context.Background(), ctx.Uint64(poolFlag.Name))
	}
	return l.MassUpdatePools(context.Background())
}

func pendingAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	pending, err := l.PendingReward(ctx.Uint64(poolFlag.Name), account(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, pending.Dec())
	return nil
}

func poolsAction(ctx *cli.Context, f *farm) error {
	l, err := f.ledger()
	if err != nil {
		return err
	}
	pools, err := l.Pools()
	if err != nil {
		return err
	}
	for _, pool := range pools {
		fmt.Fprintf(ctx.App.Writer, "%v\t%v\talloc=%v\tstaked=%v\tlast=%v\tacc=%v\n",
			pool.ID, pool.StakeToken, pool.AllocPoint, pool.TotalStaked.Dec(), pool.LastRewardBlock, pool.AccRewardPerShare.Dec())
	}
	return nil
}

func balanceAction(ctx *cli.Context, f *farm) error {
	t, err := token(ctx)
	if err != nil {
		return err
	}
	balance, err := f.bank.Balance(t, account(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, balance.Dec())
	return nil
}

func eventsAction(ctx *cli.Context, f *farm) error {
	events, err := f.store.Events(ctx.Uint64(fromFlag.Name), ctx.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(ctx.App.Writer, "%v\t%v\t%v\tpool=%v\tcaller=%v\tamount=%v\treward=%v\n",
			e.Seq, e.Block, e.Kind, e.PoolID, e.Caller, e.Amount.Dec(), e.Reward.Dec())
	}
	return nil
}

func verifyAction(ctx *cli.Context, f *farm) error {
	count, err := f.store.VerifyJournal()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "journal ok, %v events\n", count)
	return nil
}

func exportAction(ctx *cli.Context, f *farm) error {
	if f.exporter == nil {
		return fmt.Errorf("no audit database configured")
	}
	exported, err := f.exporter.Sync(context.Background(), f.store)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "exported %v events\n", exported)
	return nil
}

func serveAction(ctx *cli.Context, f *farm) error {
	var floor uint64
	if f.pinned {
		floor = f.block
	}
	l, err := f.ledgerWith(latestBlock{store: f.store, floor: floor})
	if err != nil {
		return err
	}
	metrics.Initialize()
	address := f.cfg.API.ListenAddress
	if ctx.IsSet(listenFlag.Name) {
		address = ctx.String(listenFlag.Name)
	}
	server := &http.Server{
		Addr:              address,
		Handler:           api.New(l).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	exitSignal, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errs := make(chan error, 1)
	go func() {
		logger.Get().Info().Str("address", address).Uint64("block", f.block).Msg("API server started")
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-exitSignal.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Get().Info().Msg("Stopping API server")
	return server.Shutdown(shutdown)
}
