package main

import (
	"os"

	"github.com/leftmike/litestore/cmd"
)

func main() {
	if cmd.Execute() != nil {
		os.Exit(1)
	}
}
