// Package engine executes search requests end to end.
//
// A search is compiled for the store's dialect, run against the store, and
// every returned row is projected into an ordered record. The engine also
// carries the tag mappings snapshot built at startup, so callers that
// expose tag lookups get it from the same injected value.
//
// An Engine holds no mutable state after construction. Search may be
// called from any number of goroutines at once.
package engine
