package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gstbooks/gstbooks/internal/testing/guard"
	"github.com/gstbooks/gstbooks/jobs"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info map[string]*asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	if info, ok := s.info[queue]; ok {
		return info, nil
	}
	return nil, asynq.ErrQueueNotFound
}

func (stubInspector) Close() error { return nil }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	root := NewRootCommand(stdout, new(bytes.Buffer))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	root := NewRootCommand(new(bytes.Buffer), new(bytes.Buffer))
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "seed-accounts", "fy", "jobs"})
}

func TestFYCommand(t *testing.T) {
	out, err := execute(t, "fy", "2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-31  FY 2024-25  Q4  (2024-04-01 to 2025-03-31)\n", out)

	out, err = execute(t, "fy", "2024-02-10", "--start-month", "1", "--json")
	require.NoError(t, err)
	var summary FYSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, FYSummary{Date: "2024-02-10", FinancialYear: "2024-25", Quarter: 1, Start: "2024-01-01", End: "2024-12-31"}, summary)

	_, err = execute(t, "fy", "31/03/2025")
	assert.Error(t, err)
	_, err = execute(t, "fy", "--start-month", "13")
	assert.Error(t, err)
}

func TestJobsCLITrigger(t *testing.T) {
	enq := &stubEnqueuer{}
	c := &JobsCLI{client: enq, retention: 48 * time.Hour, maxRetry: 4}

	info, err := c.Trigger(context.Background(), jobs.TaskLedgerIntegrity, 0)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskLedgerIntegrity, info.Type)

	_, err = c.Trigger(context.Background(), jobs.TaskIdempotencyCleanup, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"retention_hours":48}`, string(enq.tasks[1].Payload()))

	_, err = c.Trigger(context.Background(), jobs.TaskPaymentPosting, 0)
	assert.Error(t, err)
	_, err = c.Trigger(context.Background(), jobs.TaskPaymentPosting, 12)
	require.NoError(t, err)
	assert.JSONEq(t, `{"payment_id":12}`, string(enq.tasks[2].Payload()))

	_, err = c.Trigger(context.Background(), "mail:send", 0)
	assert.Error(t, err)
	assert.Len(t, enq.tasks, 3)
}

func TestJobsCLIInspectQueues(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{info: map[string]*asynq.QueueInfo{
		jobs.QueueDefault: {Queue: jobs.QueueDefault, Pending: 4, Scheduled: 1},
	}}}
	stats, err := c.InspectQueues()
	require.NoError(t, err)
	assert.Equal(t, []QueueStats{
		{Queue: jobs.QueueCritical},
		{Queue: jobs.QueueDefault, Pending: 4, Scheduled: 1},
	}, stats)

	c = &JobsCLI{inspector: stubInspector{err: errors.New("redis down")}}
	_, err = c.InspectQueues()
	assert.Error(t, err)
}
