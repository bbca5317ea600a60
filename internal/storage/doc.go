// Package storage opens the session store backend selected by configuration.
//
// Three backends implement service.SessionStore:
//
//   - memory: sharded in-process map, see package memory
//   - badger: embedded LSM store for single-node persistence (BadgerStore)
//   - redis: shared store for multi-instance deployments, see package redisstore
//
// Every backend serializes Update per session: memory with a per-session
// mutex, badger with conflict-detecting transactions, redis with WATCH.
//
// With Config.Cipher set, badger and redis values are sealed with the
// record key as additional data.
package storage
