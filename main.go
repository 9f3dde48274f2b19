package main

import (
	"os"

	"github.com/hostncode/apphost-smoke/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
