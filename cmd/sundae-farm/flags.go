package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config",
		Value:  "farm.toml",
		EnvVar: "FARM_CONFIG",
		Usage:  "path to the TOML configuration file",
	}
	blockFlag = cli.Uint64Flag{
		Name:  "block",
		Usage: "block number to apply the command at (defaults to the last applied block)",
	}
	callerFlag = cli.StringFlag{
		Name:  "caller",
		Usage: "id of the account submitting the command",
	}
	signerFlag = cli.StringSliceFlag{
		Name:  "signer",
		Usage: "hex key hash that signed the command; repeat for several",
	}

	poolFlag = cli.Uint64Flag{
		Name:  "pool",
		Usage: "pool id",
	}
	amountFlag = cli.StringFlag{
		Name:  "amount",
		Value: "0",
		Usage: "token amount as a decimal integer",
	}
	allocFlag = cli.Uint64Flag{
		Name:  "alloc",
		Usage: "allocation points",
	}
	tokenFlag = cli.StringFlag{
		Name:  "token",
		Usage: "asset id of the token, as policy.assetName",
	}
	accountFlag = cli.StringFlag{
		Name:  "account",
		Usage: "account id (defaults to the caller)",
	}
	withUpdateFlag = cli.BoolTFlag{
		Name:  "with-update",
		Usage: "bring every pool current before changing weights",
	}
	unlimitedFlag = cli.BoolFlag{
		Name:  "unlimited",
		Usage: "approve an allowance that never runs down",
	}
	fromFlag = cli.Uint64Flag{
		Name:  "from",
		Value: 1,
		Usage: "first event sequence number",
	}
	limitFlag = cli.IntFlag{
		Name:  "limit",
		Usage: "maximum number of events (0 for all)",
	}
	listenFlag = cli.StringFlag{
		Name:  "listen",
		Usage: "API listen address (overrides the configuration)",
	}
)
