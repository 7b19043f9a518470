package runtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/mockgrader/internal/observability"
)

var ErrUnknownJob = errors.New("unknown job type")

// Execute runs the handler registered for jc.JobType and returns the run's
// terminal error: the handler's own error, the error passed to Fail, or the
// context error when the run was interrupted.
func Execute(reg *Registry, jc *Context) error {
	if reg == nil || jc == nil {
		return fmt.Errorf("registry and context required")
	}
	h, ok := reg.Get(jc.JobType)
	if !ok {
		return fmt.Errorf("%w: %s (registered: %s)", ErrUnknownJob, jc.JobType, strings.Join(reg.Types(), ", "))
	}

	ctx, span := otel.Tracer("github.com/yungbote/mockgrader/internal/jobs/runtime").Start(jc.Ctx, "job."+jc.JobType)
	defer span.End()
	span.SetAttributes(
		attribute.String("job.type", jc.JobType),
		attribute.String("job.run_id", jc.RunID.String()),
		attribute.Bool("job.dry_run", jc.Options.DryRun),
		attribute.Int("job.limit", jc.Options.Limit),
	)
	jc.Ctx = ctx

	err := h.Run(jc)
	if err == nil && jc.Failed() {
		err = jc.Err
		if err == nil {
			err = fmt.Errorf("%s failed at stage %s", jc.JobType, jc.Stage)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.Current().ObserveRun(jc.JobType, time.Since(jc.Started), err == nil)
	return err
}
