// Package renderqueue serialises shot renders through a single worker.
//
// Entries are rendered strictly in FIFO order with at most one job in flight.
// Consecutive jobs are spaced (3s by default) to stay under the render
// backend's rate limits. Every entry ends in exactly one terminal callback:
// OnComplete with the video URL, or OnError with the failure message and its
// classification. A failure never stops the loop.
//
// EnqueueBatch adds join-all semantics on top: the batch callback fires once
// after every member has reached a terminal callback, whatever the mix of
// successes and failures.
package renderqueue
