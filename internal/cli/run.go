package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jzx17/goexecutor/internal/config"
	"github.com/jzx17/goexecutor/pkg/executor"
	"github.com/jzx17/goexecutor/pkg/retry"
	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errInjected = errors.New("injected task failure")

// newRunCmd creates the run command
func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic workload on an event loop executor",
		Long: `Run starts an executor, lets concurrent producers submit tasks to it, runs a
batch of callables through InvokeAll and then shuts the executor down gracefully.
Producers resubmit with backoff when a bounded queue rejects them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorkload(cmd)
		},
	}

	flags := cmd.Flags()
	flags.Int("producers", 4, "number of concurrent producers")
	flags.Int("tasks", 250, "tasks submitted by each producer")
	flags.Int("lazy-every", 0, "submit every n-th task lazily, 0 disables")
	flags.Int("fail-every", 0, "make every n-th task fail, 0 disables")
	flags.Duration("task-duration", 0, "how long each task occupies the loop")
	flags.Int("batch", 16, "callables run through InvokeAll, 0 disables")
	flags.Int("retry-attempts", 50, "submissions per task while the queue is full")
	flags.Duration("retry-delay", time.Millisecond, "initial backoff between submissions")

	a.bind(cmd, map[string]string{
		"workload.producers":     "producers",
		"workload.tasks":         "tasks",
		"workload.lazyEvery":     "lazy-every",
		"workload.failEvery":     "fail-every",
		"workload.taskDuration":  "task-duration",
		"workload.batch":         "batch",
		"workload.retryAttempts": "retry-attempts",
		"workload.retryDelay":    "retry-delay",
	}, false)

	return cmd
}

// workTask is one unit of the synthetic workload
type workTask struct {
	id       string
	lazy     bool
	fail     bool
	duration time.Duration
	ran      *atomic.Int64
}

func (t *workTask) ID() string { return t.id }

func (t *workTask) Lazy() bool { return t.lazy }

func (t *workTask) Execute(ctx context.Context) error {
	t.ran.Add(1)
	if err := types.Sleep(ctx, types.ClockFromContext(ctx), t.duration); err != nil {
		return err
	}
	if t.fail {
		return errInjected
	}
	return nil
}

func (a *app) runWorkload(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	workload := a.config.Workload

	execConfig, err := a.config.ExecutorConfig(a.logger)
	if err != nil {
		return err
	}
	exec, err := executor.NewSingleThreadExecutor(execConfig)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	// injected failures are expected, count them instead of logging each one
	var injected atomic.Int64
	if err := exec.HandleErrors("injected", errInjected, func(err error) error {
		injected.Add(1)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to bind error handler: %w", err)
	}

	if _, err := exec.AddShutdownHook(func() {
		a.logger.Info().Int("pending", exec.PendingTasks()).Log("shutdown hook ran")
	}); err != nil {
		return fmt.Errorf("failed to add shutdown hook: %w", err)
	}

	submitter := retry.NewSubmitter(exec,
		retry.NewPolicy(workload.RetryAttempts, retry.NewExponentialBackoff(workload.RetryDelay,
			retry.WithMaxDelay(100*workload.RetryDelay),
			retry.WithJitter(retry.EqualJitter),
		)),
		retry.WithLogger(a.logger),
	)

	start := time.Now()
	var ran atomic.Int64
	produceErr := produce(ctx, submitter, workload, &ran)
	if produceErr != nil {
		a.logger.Err().Err(produceErr).Log("producers stopped early")
	}

	if produceErr == nil && workload.Batch > 0 {
		sum, err := runBatch(ctx, exec, workload.Batch)
		if err != nil {
			a.logger.Err().Err(err).Log("batch invocation failed")
		} else {
			fmt.Fprintf(out, "Batch: sum of squares 1..%d = %d\n", workload.Batch, sum)
		}
	}

	exec.ShutdownGracefully(a.config.Executor.QuietPeriod, a.config.Executor.ShutdownTimeout)
	if err := exec.AwaitTermination(ctx); err != nil {
		// interrupted, skip the quiet period but still wait for the loop
		exec.ShutdownGracefully(0, 0)
		if waitErr := exec.AwaitTermination(context.Background()); waitErr != nil {
			return waitErr
		}
	}
	elapsed := time.Since(start)

	f := a.formatter()
	fmt.Fprintln(out, "")
	if err := f.FormatStats(out, exec.Stats()); err != nil {
		return err
	}
	fmt.Fprintln(out, "")
	if err := f.FormatRetry(out, submitter.Stats()); err != nil {
		return err
	}
	f.FormatSummary(out, exec.Stats(), elapsed)

	a.logger.Info().
		Int64("ran", ran.Load()).
		Int("injected_failures", int(injected.Load())).
		Dur("elapsed", elapsed).
		Log("workload finished")

	if produceErr != nil {
		return produceErr
	}
	return ctx.Err()
}

// produce submits the workload from concurrent producers
func produce(ctx context.Context, submitter *retry.Submitter, workload config.WorkloadConfig, ran *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < workload.Producers; p++ {
		g.Go(func() error {
			for i := 1; i <= workload.Tasks; i++ {
				task := &workTask{
					id:       fmt.Sprintf("p%d-%d", p, i),
					lazy:     workload.LazyEvery > 0 && i%workload.LazyEvery == 0,
					fail:     workload.FailEvery > 0 && i%workload.FailEvery == 0,
					duration: workload.TaskDuration,
					ran:      ran,
				}
				if err := submitter.Submit(gctx, task); err != nil {
					return fmt.Errorf("producer %d: %w", p, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// runBatch computes the sum of squares 1..n with one callable per term
func runBatch(ctx context.Context, exec *executor.SingleThreadExecutor, n int) (int, error) {
	callables := make([]executor.Callable[int], n)
	for i := range callables {
		k := i + 1
		callables[i] = func(ctx context.Context) (int, error) {
			return k * k, nil
		}
	}

	futures, err := executor.InvokeAll(ctx, exec, callables)
	if err != nil {
		return 0, err
	}

	sum := 0
	for _, f := range futures {
		v, err := f.Wait(ctx)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}
