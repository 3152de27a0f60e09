package main

import (
	"context"
	"os"

	"github.com/dgallion1/sumzero/internal/cli"
)

// Version info (injected via ldflags)
var version = "dev"

func main() {
	os.Exit(cli.Execute(context.Background(), version, os.Args[1:]))
}
