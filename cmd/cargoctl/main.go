package main

import (
	"fmt"
	"os"

	"github.com/signalsfoundry/stowage/internal/cli"
)

func main() {
	if err := cli.RootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
