// Package main is the entry point for the shredder command.
//
// shredder overwrites files with random data and zeros before deleting them.
// Run "shredder --help" for commands and flags; exit codes are documented in
// package cli.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"shredder/internal/cli"
)

func main() {
	// The first signal stops new files from starting; the file being
	// overwritten runs to completion.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
