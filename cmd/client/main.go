package main

import (
	"fmt"
	"os"

	"github.com/iudanet/milkledger/internal/client/cli"
	"github.com/iudanet/milkledger/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(versionString(), iocli.NewStdio())

	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}

func versionString() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit)
}
