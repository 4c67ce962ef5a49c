// Package resolver walks the required-dependency graph of a content catalog.
//
// Resolution is a breadth-first walk seeded with the root's canonical id.
// Each id is evaluated at most once per call: an id already processed, or
// listed as installed by the caller, is dropped when it comes off the queue.
// That single membership check is what breaks cycles (A -> B -> A) and
// collapses diamonds (A -> B, A -> C, B -> D, C -> D) to one visit of D.
//
// Registry queries for all ids of one BFS level run concurrently, bounded by
// the configured width. Each query's failure is kept on its own item; the
// processed set, pins and the queue are only touched by the calling
// goroutine, in queue order, so the outcome does not depend on which query
// returns first.
//
// Unresolvable dependencies never fail the call. They become Warnings and
// their branch is pruned. Only an unresolvable root is reported as an error.
package resolver
