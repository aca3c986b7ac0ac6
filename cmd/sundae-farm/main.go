// sundae-farm operates a yield farm kept in a local data directory: pools are added and reweighted
// by the privileged caller, and anyone can stake, claim and unstake.
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var version = "dev"

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "sundae-farm"
	app.Usage = "Multi-pool yield farm"
	app.Version = version
	app.Flags = []cli.Flag{configFlag, blockFlag, callerFlag, signerFlag}
	app.Commands = commands()
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
