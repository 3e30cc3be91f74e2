// Package comm implements the message-passing substrate of
// the inversion engine: a fixed group of ranked processes
// (one Goroutine each), tagged point-to-point send/receive,
// broadcast/gather/barrier collectives rooted at rank 0,
// and a pull-based work dispatcher.
//
// All communication is synchronous and uninterruptible;
// there are no timeouts or retries. If every
// process ends up blocked waiting for a message that can
// never arrive, Loop.Run reports a deadlock and the run
// aborts.
package comm
