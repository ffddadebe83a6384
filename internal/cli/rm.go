package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"shredder/internal/batch"
	"shredder/internal/config"
	"shredder/internal/gitcheck"
	"shredder/pkg/shred"
)

type rmOptions struct {
	passes        int
	blockSize     int
	recursive     bool
	yes           bool
	jobs          int
	gitCheck      string
	allowSymlinks bool
	keepDirs      bool
}

func addRmFlags(cmd *cobra.Command, o *rmOptions) {
	f := cmd.Flags()
	f.IntVarP(&o.passes, "passes", "n", 0, "random overwrite passes before the zero pass (default from config)")
	f.IntVar(&o.blockSize, "block-size", 0, "bytes written per I/O call (default from config)")
	f.BoolVarP(&o.recursive, "recursive", "r", false, "shred every file below directory arguments")
	f.BoolVarP(&o.yes, "yes", "y", false, "do not ask for confirmation")
	f.IntVarP(&o.jobs, "jobs", "j", 0, "files shredded in parallel (default from config)")
	f.StringVar(&o.gitCheck, "git-check", "", "git-tracked files: warn, refuse or off (default from config)")
	f.BoolVar(&o.allowSymlinks, "allow-symlinks", false, "shred the files symbolic links point to")
	f.BoolVar(&o.keepDirs, "keep-dirs", false, "keep directories emptied by --recursive")
}

func newRmCommand(a *app) *cobra.Command {
	opts := &rmOptions{}
	cmd := &cobra.Command{
		Use:     "rm [flags] <path>...",
		Aliases: []string{"shred"},
		Short:   "Overwrite files and delete them",
		Example: `  shredder rm secret.pdf
  shredder rm -n 7 -y old-keys/id_rsa
  shredder rm -r -j 4 ~/Downloads/statements`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRm(cmd, opts, args)
		},
	}
	addRmFlags(cmd, opts)
	return cmd
}

// settings merges flags that were set over the loaded config.
type rmSettings struct {
	passes    int
	blockSize int
	jobs      int
	policy    gitcheck.Policy
	confirm   bool
	pruneDirs bool
}

func (a *app) settings(cmd *cobra.Command, o *rmOptions) (rmSettings, error) {
	s := rmSettings{
		passes:    a.cfg.Passes,
		blockSize: a.cfg.BlockSize,
		jobs:      a.cfg.Jobs,
		policy:    a.cfg.GitPolicy(),
		confirm:   a.cfg.Confirm && !o.yes,
		pruneDirs: a.cfg.RemoveEmptyDirs && !o.keepDirs,
	}
	flags := cmd.Flags()
	if flags.Changed("passes") {
		if o.passes > config.MaxPasses {
			return s, usagef("--passes must be at most %d, got %d", config.MaxPasses, o.passes)
		}
		s.passes = o.passes
	}
	if flags.Changed("block-size") {
		if o.blockSize < 1 {
			return s, usagef("--block-size must be positive, got %d", o.blockSize)
		}
		s.blockSize = o.blockSize
	}
	if flags.Changed("jobs") {
		if o.jobs < 1 {
			return s, usagef("--jobs must be at least 1, got %d", o.jobs)
		}
		s.jobs = o.jobs
	}
	if flags.Changed("git-check") {
		p, err := gitcheck.ParsePolicy(o.gitCheck)
		if err != nil {
			return s, &usageError{err: err}
		}
		s.policy = p
	}
	return s, nil
}

func (a *app) runRm(cmd *cobra.Command, o *rmOptions, args []string) error {
	settings, err := a.settings(cmd, o)
	if err != nil {
		return err
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	targets, planErrs := batch.Plan(args, batch.PlanOptions{
		Recursive:     o.recursive,
		AllowSymlinks: o.allowSymlinks,
	})
	for _, pe := range planErrs {
		fmt.Fprintf(stderr, "skipping %v\n", pe)
	}
	if len(targets) == 0 {
		if len(planErrs) > 0 {
			return &reportedError{err: planErrs[0]}
		}
		return usagef("nothing to shred")
	}

	if settings.confirm {
		ok, err := confirm(cmd.InOrStdin(), stdout, targets, settings.passes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted; nothing was shredded.")
			return nil
		}
	}

	logger := a.logger
	runner := &batch.Runner{
		Shredder: shred.New(
			shred.WithBlockSize(settings.blockSize),
			shred.WithObserver(func(ev shred.Event) {
				if ev.Written == ev.Total && (ev.Phase == shred.PhaseRandom || ev.Phase == shred.PhaseZero) {
					logger.Debug("Pass complete", "path", ev.Path, "phase", ev.Phase, "pass", ev.Pass, "of", ev.Rounds)
				}
			}),
		),
		Passes:          settings.passes,
		Jobs:            settings.jobs,
		GitPolicy:       settings.policy,
		RemoveEmptyDirs: settings.pruneDirs && o.recursive,
		Logger:          logger,
		OnResult: func(res batch.Result) {
			printResult(stdout, stderr, res)
		},
	}

	report := runner.Run(cmd.Context(), targets)
	fmt.Fprintln(stdout, report.Summary())

	if err := report.Err(); err != nil {
		return &reportedError{err: err}
	}
	if len(planErrs) > 0 {
		return &reportedError{err: planErrs[0]}
	}
	return nil
}

func confirm(in io.Reader, out io.Writer, targets []batch.Target, passes int) (bool, error) {
	const maxListed = 20

	var total int64
	for _, t := range targets {
		total += t.Size
	}
	fmt.Fprintf(out, "About to shred %d file(s), %s, with %d random pass(es) and a zero pass:\n",
		len(targets), units.BytesSize(float64(total)), shred.ClampPasses(passes))
	for i, t := range targets {
		if i == maxListed {
			fmt.Fprintf(out, "  ... and %d more\n", len(targets)-maxListed)
			break
		}
		size := units.BytesSize(float64(t.Size))
		if t.Missing {
			size = "missing"
		}
		fmt.Fprintf(out, "  %s (%s)\n", t.Name(), size)
	}
	fmt.Fprint(out, "This action cannot be undone. Continue? [y/N] ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(out)
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func printResult(stdout, stderr io.Writer, res batch.Result) {
	name := res.Target.Name()
	if res.Err != nil {
		fmt.Fprintf(stderr, "failed   %s: %v\n", name, res.Err)
		for _, hint := range shred.Hints(res.Err) {
			fmt.Fprintf(stderr, "         hint: %s\n", hint)
		}
		return
	}
	fmt.Fprintf(stdout, "shredded %s (%s)\n", name, units.BytesSize(float64(res.Target.Size)))
	if res.Warning != "" {
		fmt.Fprintf(stderr, "warning  %s: %s\n", name, res.Warning)
	}
}
