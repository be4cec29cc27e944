package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/gstbooks/gstbooks/internal/app"
	"github.com/gstbooks/gstbooks/jobs"
)

// TaskEnqueuer submits tasks to the queue.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// QueueInspector reads queue statistics.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    TaskEnqueuer
	inspector QueueInspector
	retention time.Duration
	maxRetry  int
}

// NewJobsCLI initialises the helpers against the configured Redis.
func NewJobsCLI(cfg *app.Config) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	return &JobsCLI{
		client:    asynq.NewClient(opts),
		inspector: asynq.NewInspector(opts),
		retention: cfg.IdempotencyRetention,
		maxRetry:  cfg.PaymentPostingMaxRetry,
	}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. Payment posting needs the payment id.
func (c *JobsCLI) Trigger(ctx context.Context, name string, paymentID int64) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var (
		task *asynq.Task
		err  error
	)
	switch name {
	case jobs.TaskLedgerIntegrity:
		task = jobs.NewLedgerIntegrityTask()
	case jobs.TaskIdempotencyCleanup:
		task, err = jobs.NewIdempotencyCleanupTask(int(c.retention / time.Hour))
	case jobs.TaskPaymentPosting:
		task, err = jobs.NewPaymentPostingTask(paymentID, c.maxRetry)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueues reports statistics for every queue the worker serves.
func (c *JobsCLI) InspectQueues() ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	var out []QueueStats
	for _, name := range []string{jobs.QueueCritical, jobs.QueueDefault} {
		info, err := c.inspector.GetQueueInfo(name)
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				out = append(out, QueueStats{Queue: name})
				continue
			}
			return nil, err
		}
		out = append(out, QueueStats{
			Queue:     name,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
		})
	}
	return out, nil
}

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}

	var paymentID int64
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a job now",
		Example: fmt.Sprintf("  gstbooks jobs trigger %s\n  gstbooks jobs trigger %s --payment 42",
			jobs.TaskLedgerIntegrity, jobs.TaskPaymentPosting),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			c := NewJobsCLI(cfg)
			defer c.Close()
			return runTrigger(cmd, c, args[0], paymentID)
		},
	}
	trigger.Flags().Int64Var(&paymentID, "payment", 0, "payment id for "+jobs.TaskPaymentPosting)

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			c := NewJobsCLI(cfg)
			defer c.Close()
			return runStats(cmd, c)
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}

func runTrigger(cmd *cobra.Command, c *JobsCLI, name string, paymentID int64) error {
	info, err := c.Trigger(cmd.Context(), name, paymentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return nil
}

func runStats(cmd *cobra.Command, c *JobsCLI) error {
	stats, err := c.InspectQueues()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range stats {
		fmt.Fprintf(out, "%-9s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
	}
	return nil
}
