package variantlib

import "log"

type (
	// ProgressHandlerFunc is called after each chunk with the job id and
	// the new percent value.
	ProgressHandlerFunc func(jobID string, percent int)
	// CompleteHandlerFunc is called once when a transfer finishes.
	CompleteHandlerFunc func(jobID string)
	// FailedHandlerFunc is called on a permanently failed job.
	FailedHandlerFunc func(jobID string, err error)
	// RequeuedHandlerFunc is called when a failed job re-enters the
	// pending queue for another attempt.
	RequeuedHandlerFunc func(jobID string, attempts int)
)

// Handlers carries the callbacks an execution unit reports through.
// Any nil handler is replaced with a no-op.
type Handlers struct {
	ProgressHandler ProgressHandlerFunc
	CompleteHandler CompleteHandlerFunc
	FailedHandler   FailedHandlerFunc
	RequeuedHandler RequeuedHandlerFunc
}

func (h *Handlers) setDefault(l *log.Logger) {
	if h.ProgressHandler == nil {
		h.ProgressHandler = func(jobID string, percent int) {}
	}
	if h.CompleteHandler == nil {
		h.CompleteHandler = func(jobID string) {}
	}
	if h.RequeuedHandler == nil {
		h.RequeuedHandler = func(jobID string, attempts int) {}
	}
	if h.FailedHandler == nil {
		h.FailedHandler = func(jobID string, err error) {
			vlog(l, "%s: failed: %s", jobID, err.Error())
		}
	} else {
		failedHandler := h.FailedHandler
		h.FailedHandler = func(jobID string, err error) {
			vlog(l, "%s: failed: %s", jobID, err.Error())
			failedHandler(jobID, err)
		}
	}
}

func vlog(l *log.Logger, format string, args ...any) {
	if l == nil {
		return
	}
	l.Printf(format, args...)
}
