// Package workspace keeps a multi-tab query workspace consistent across
// three stores: the in-memory TabStore (canonical), a durable partition in
// a core.PartitionStore, and the shareable URL token with its navigable
// History.
//
// Data flows one way into the TabStore, either from the Bridge (initial
// load, back/forward navigation) or from direct edits. Every effective
// store mutation is reflected outward by the Persister and, while the
// Bridge is live, into the URL through the Codec.
//
// The package is single-threaded by contract. Surfaces that serve
// concurrent callers wrap access in Session.Do.
package workspace
