// Package cli wires the shredder commands together with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"shredder/internal/batch"
	"shredder/internal/config"
	"shredder/internal/gitcheck"
	"shredder/internal/logging"
	"shredder/pkg/fileops"
	"shredder/pkg/shred"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitUnexpected   = 1
	ExitUsage        = 2
	ExitNotFound     = 3
	ExitNotWritable  = 4
	ExitIO           = 5
	ExitDeleteFailed = 6
)

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// reportedError wraps a failure whose details were already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var shredErr *shred.Error
	if errors.As(err, &shredErr) {
		switch shredErr.Kind {
		case shred.KindNotFound:
			return ExitNotFound
		case shred.KindNotWritable:
			return ExitNotWritable
		case shred.KindIO:
			return ExitIO
		case shred.KindDeleteFailed:
			return ExitDeleteFailed
		default:
			return ExitUnexpected
		}
	}

	var usage *usageError
	var plan *batch.PlanError
	switch {
	case errors.As(err, &usage):
		return ExitUsage
	case errors.As(err, &plan):
		return ExitUsage
	}
	return ExitUnexpected
}

// app carries state shared by every command.
type app struct {
	cfg        *config.Config
	configPath string
	verbose    bool
	logger     *logging.AppLogger
}

func (a *app) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return usagef("%w", err)
	}
	a.cfg = cfg
	a.logger.SetVerbose(a.verbose)
	return nil
}

// NewRootCommand builds the command tree. The root command shreds its
// arguments, like "shredder rm".
func NewRootCommand(logger *logging.AppLogger) *cobra.Command {
	if logger == nil {
		logger = logging.GetDefault()
	}
	a := &app{logger: logger}

	opts := &rmOptions{}
	root := &cobra.Command{
		Use:   "shredder [flags] <file>...",
		Short: "Securely overwrite and delete files",
		Long: `shredder overwrites each file with random data (several passes), then with
zeros, truncates it and deletes it. Shredded files cannot be recovered.

Overwriting cannot reach copies kept elsewhere: snapshots, backups, git
history, or blocks remapped by SSD wear levelling and copy-on-write
filesystems.`,
		Version:       config.AppVersion,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runRm(cmd, opts, args)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")
	addRmFlags(root, opts)

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(
		newRmCommand(a),
		newCheckCommand(a),
		newConfigCommand(a),
		newTUICommand(a),
		newMCPCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return run(ctx, NewRootCommand(nil), args, stdin, stdout, stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		for _, hint := range shred.Hints(err) {
			fmt.Fprintf(stderr, "Hint: %s\n", hint)
		}
		var refused *gitcheck.RefusedError
		if errors.As(err, &refused) {
			fmt.Fprintln(stderr, "Hint: rewrite the repository history to remove it, or pass --git-check=warn")
		}
		if errors.Is(err, fileops.ErrIsDirectory) {
			fmt.Fprintln(stderr, "Hint: use --recursive to shred every file in a directory")
		}
	}
	return ExitCode(err)
}
