package printer

import (
	"fmt"
	"time"

	"niimctl/protocol"
)

// StepError is one failed exchange
type StepError struct {
	Step string
	Err  error
}

func (e StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e StepError) Unwrap() error {
	return e.Err
}

// Report summarises a print job
type Report struct {
	JobID     string
	Started   time.Time
	Finished  time.Time
	Completed bool

	FramesSent int
	RowsSent   int
	BlankRuns  int
	PixelRows  int

	// Failures lists every exchange that went wrong, in order
	Failures []StepError
	// Rejected lists the commands the printer answered with a zero status byte
	Rejected []protocol.Command
	// Statuses holds the decoded status replies
	Statuses []Status
}

// Elapsed returns how long the job ran
func (r *Report) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// OK reports whether the job finished without a single failed exchange
func (r *Report) OK() bool {
	return r.Completed && len(r.Failures) == 0
}
