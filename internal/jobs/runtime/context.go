package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mockgrader/internal/pkg/ctxutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

/*
Context is the execution handle for a single batch run.
It carries:
	- Ctx: cancellation from SIGINT/SIGTERM, tagged with the run id
	- RunID: a fresh id per invocation, used for log correlation and metric grouping
	- Options: the operator's flags
Pipelines report their terminal state through Fail or Succeed; the runner reads
it back to decide the process exit code.
*/
type Context struct {
	Ctx     context.Context
	RunID   uuid.UUID
	JobType string
	Log     *logger.Logger
	Options Options

	Status  string
	Stage   string
	Err     error
	Result  map[string]any
	Started time.Time
}

type Options struct {
	Limit  int
	DryRun bool
}

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

func NewContext(ctx context.Context, jobType string, log *logger.Logger, opts Options) *Context {
	if log == nil {
		log = logger.Nop()
	}
	runID := uuid.New()
	ctx = ctxutil.WithRunData(ctx, &ctxutil.RunData{RunID: runID.String(), JobType: jobType})
	return &Context{
		Ctx:     ctx,
		RunID:   runID,
		JobType: jobType,
		Log:     log.With("job", jobType, "run_id", runID.String()),
		Options: opts,
		Status:  StatusRunning,
		Started: time.Now(),
	}
}

// Progress logs a non-terminal stage change.
func (c *Context) Progress(stage string, msg string) {
	if c == nil {
		return
	}
	c.Stage = stage
	c.Log.Info(msg, "stage", stage)
}

/*
Fail marks the run as failed at stage. A later Succeed does not clear it.
*/
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	c.Status = StatusFailed
	c.Stage = stage
	c.Err = err
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.Log.Error("run failed", "stage", stage, "error", msg)
}

func (c *Context) Succeed(finalStage string, result map[string]any) {
	if c == nil || c.Status == StatusFailed {
		return
	}
	c.Status = StatusSucceeded
	c.Stage = finalStage
	c.Result = result
	kv := []interface{}{"stage", finalStage, "elapsed", time.Since(c.Started).String()}
	for k, v := range result {
		kv = append(kv, k, v)
	}
	c.Log.Info("run succeeded", kv...)
}

func (c *Context) Failed() bool {
	return c != nil && c.Status == StatusFailed
}
