package main

import (
	"os"

	"github.com/brandonbloom/cliharness/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
