package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"golang.org/x/sync/errgroup"

	"shredder/internal/gitcheck"
	"shredder/internal/logging"
	"shredder/pkg/fileops"
	"shredder/pkg/shred"
)

// ErrSkipped marks targets that were never started because the run was
// cancelled.
var ErrSkipped = errors.New("skipped: run cancelled")

// Result is the outcome for one target.
type Result struct {
	Target Target
	// Err is nil on success.
	Err error
	// Warning is set when the file was shredded but a copy is known to
	// survive elsewhere (git history).
	Warning  string
	Duration time.Duration
}

// Report summarises a run. Results are in target order.
type Report struct {
	Results  []Result
	Pruned   []string
	Started  time.Time
	Finished time.Time
}

// Succeeded returns the number of targets shredded.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of targets not shredded, skipped ones included.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Bytes returns the total size of the targets that were shredded.
func (r *Report) Bytes() int64 {
	var total int64
	for _, res := range r.Results {
		if res.Err == nil {
			total += res.Target.Size
		}
	}
	return total
}

// Err returns the first failure in target order, or nil.
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// Summary renders the one-line outcome of the run, for example
// "3 shredded, 1 failed, 12KiB overwritten in 40ms".
func (r *Report) Summary() string {
	elapsed := r.Finished.Sub(r.Started).Round(time.Millisecond)
	s := fmt.Sprintf("%d shredded, %d failed, %s overwritten in %s",
		r.Succeeded(), r.Failed(), units.BytesSize(float64(r.Bytes())), elapsed)
	switch n := len(r.Pruned); n {
	case 0:
	case 1:
		s += "; 1 empty directory removed"
	default:
		s += fmt.Sprintf("; %d empty directories removed", n)
	}
	return s
}

// Runner shreds a list of targets.
type Runner struct {
	Shredder *shred.Shredder
	Passes   int
	// Jobs bounds how many files are shredded at once. Values below 1 mean 1.
	Jobs      int
	GitPolicy gitcheck.Policy
	// RemoveEmptyDirs prunes directory arguments once their files are gone.
	RemoveEmptyDirs bool
	Logger          *logging.AppLogger
	// OnResult, if set, is called once per target as it finishes. Calls are
	// serialised.
	OnResult func(Result)
}

// Run shreds targets. Each file is independent: a failure is recorded and
// the run moves on. Cancelling ctx stops new files from starting; files
// already being overwritten run to completion.
func (r *Runner) Run(ctx context.Context, targets []Target) *Report {
	logger := r.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}
	shredder := r.Shredder
	if shredder == nil {
		shredder = shred.New()
	}

	report := &Report{Results: make([]Result, len(targets)), Started: time.Now()}
	defer logger.LogPerformance("batch", report.Started)

	var mu sync.Mutex
	finish := func(i int, res Result) {
		mu.Lock()
		defer mu.Unlock()
		report.Results[i] = res
		if r.OnResult != nil {
			r.OnResult(res)
		}
	}

	var g errgroup.Group
	g.SetLimit(max(r.Jobs, 1))

	for i, t := range targets {
		if ctx.Err() != nil {
			finish(i, Result{Target: t, Err: fmt.Errorf("%w: %s", ErrSkipped, t.Name())})
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				finish(i, Result{Target: t, Err: fmt.Errorf("%w: %s", ErrSkipped, t.Name())})
				return nil
			}
			finish(i, r.shredOne(shredder, logger, t))
			return nil
		})
	}
	_ = g.Wait()

	if r.RemoveEmptyDirs {
		for _, root := range Roots(targets) {
			removed, err := fileops.RemoveEmptyDirs(root, true)
			report.Pruned = append(report.Pruned, removed...)
			if err != nil {
				logger.Warn("Failed to remove empty directories", "root", root, "error", err)
			}
		}
	}

	report.Finished = time.Now()
	logger.Info("Batch finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"bytes", report.Bytes(),
	)
	return report
}

func (r *Runner) shredOne(shredder *shred.Shredder, logger *logging.AppLogger, t Target) Result {
	start := time.Now()
	res := Result{Target: t}
	log := logger.With("path", t.Path)

	if !t.Missing && r.GitPolicy != "" {
		warn, err := gitcheck.Check(t.Path, r.GitPolicy)
		var refused *gitcheck.RefusedError
		switch {
		case errors.As(err, &refused):
			log.Warn("Refusing git-tracked file", "repo", refused.RepoRoot)
			res.Err = err
			res.Duration = time.Since(start)
			return res
		case err != nil:
			log.Warn("Git check failed, continuing", "error", err)
		case warn:
			res.Warning = "tracked by git: committed copies remain in the repository history"
			log.Warn("Shredding git-tracked file", "warning", res.Warning)
		}
	}

	res.Err = shredder.Do(shred.Request{Path: t.Path, Passes: r.Passes})
	res.Duration = time.Since(start)
	if res.Err != nil {
		log.Error("Shred failed", "kind", shred.KindOf(res.Err), "error", res.Err)
	} else {
		log.Info("Shredded", "bytes", t.Size, "passes", shred.ClampPasses(r.Passes), "duration", res.Duration)
	}
	return res
}
