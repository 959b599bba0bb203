package constants

// RunStatus is the canonical status for rows in extraction_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"    // accepted, waiting for a worker
	RunStatusRunning   RunStatus = "RUNNING"   // pipeline in progress
	RunStatusSucceeded RunStatus = "SUCCEEDED" // result stored
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
)
