// Package worker contains the long-running loops that move tasks
// through the pipeline: the evaluation worker consuming the task queue,
// the execution worker consuming the execution queue, the log ingestion
// worker deriving ideas from journals, and the review console used by
// human operators.
//
// Every consumer follows the same contract: receive with a bounded
// wait, process the message fully, and delete it only after processing
// succeeded. A message whose processing failed is left in flight so the
// queue redelivers it after the visibility timeout; a message whose
// content can never be processed is archived as a rejection and then
// deleted.
package worker

import (
	"context"
	"time"
)

// sleepCtx waits for d or until ctx is cancelled, reporting false on
// cancellation so poll loops can exit promptly.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
