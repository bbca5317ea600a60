// Package memory provides the in-memory session store.
//
// Sessions live in a sharded map (pkg/cmap). Each session has its own
// mutex, so Update calls on one session are serialized while different
// sessions proceed in parallel. A janitor goroutine evicts sessions idle
// for longer than the TTL.
//
// State is lost on restart; use the badger or redis backend when tokens
// and rate windows must survive a restart or be shared between processes.
package memory
