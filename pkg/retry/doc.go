// Package retry resubmits tasks that a saturated executor refused.
//
// A bounded executor queue with the reject policy fails submissions with
// types.ErrCapacityExceeded. Producers that would rather wait than drop work wrap their
// executor in a Submitter, which retries those rejections with a backoff. Rejections
// caused by shutdown are final and returned immediately.
//
// Basic usage example:
//
//	submitter := retry.NewSubmitter(exec, retry.NewPolicy(5,
//		retry.NewExponentialBackoff(time.Millisecond, retry.WithMaxDelay(100*time.Millisecond)),
//	))
//	if err := submitter.Submit(ctx, task); err != nil {
//		return err
//	}
package retry
