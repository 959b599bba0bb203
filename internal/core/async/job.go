package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-extractor/internal/core"
)

// Job is one document reference waiting for a worker.
type Job struct {
	Source      string
	RunID       uuid.UUID // QUEUED journal row, uuid.Nil when not journaled
	SubmittedAt time.Time
	TraceID     string    // request id for worker logs; the run id is used when empty
}

// JobResult is emitted on Results once a job finishes.
type JobResult struct {
	Job    Job
	Report *core.Report
	Err    error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
