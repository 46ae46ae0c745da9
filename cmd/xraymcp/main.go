package main

import (
	"fmt"
	"os"

	"github.com/bikeracer4487/xray-mcp-sub001/cmd/xraymcp/cli"
)

// Set via -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
