// Package syncer reconciles the local session cache with the remote
// session store.
//
// A cycle runs Idle -> Draining -> Fetching -> Merging -> Idle:
//
//  1. Draining applies the pending queue in order.
//  2. Fetching downloads the full remote session set.
//  3. Merging compares every record by ModifiedAt (last write wins),
//     removes records deleted remotely and re-queues lost creates.
//
// Cycles never overlap and never return errors to the trigger; the
// outcome is reported through Report, State and metrics.
package syncer
