// Package scoring turns depth requests into scored batches.
//
// engine.go resolves the ensemble in the store, fans the curves of one
// request out to a bounded worker pool and returns results in input order.
// Long curves are additionally split across timepoints with
// mbd.Index.CountConcurrent. Counts are integers, so concurrent and
// sequential scoring produce identical depths.
//
// cache.go memoises depths keyed by ensemble ID, ensemble version and an
// xxhash fingerprint of the curve. Replacing an ensemble bumps its version,
// which makes every cached depth for the old index unreachable.
//
// sink.go defines the Sink interface through which alerts, the WebSocket hub
// and the metrics registry observe each Batch.
package scoring
