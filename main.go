package main

import (
	"fmt"
	"os"

	"terbot/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "terbot:", err)
		os.Exit(1)
	}
}
