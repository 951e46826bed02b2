// Package workflow drives shots from storyboard to rendered video.
//
// The Manager generates code for each shot, hands finished code to the
// render queue, and resolves every render outcome: successes are stored,
// code defects are routed to the auto-fix controller, and infrastructure
// failures are recorded for a manual retry. It also implements the
// resubmission hook auto-fix uses to put repaired shots back in the queue,
// and tracks when the whole pipeline has gone quiet so callers can block on
// a complete run.
package workflow
