package main

import (
	"os"

	"github.com/netrixframework/smtkit/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
