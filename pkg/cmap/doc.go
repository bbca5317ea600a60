// Package cmap provides a string-keyed concurrent map split into shards.
//
// Each shard has its own RWMutex, so operations on different keys rarely
// contend. The in-memory session store keeps one entry per session ID here.
//
//	m := cmap.New[*entry]()
//	e, loaded := m.GetOrSet(id, newEntry())
//	m.RemoveIf(id, func(v *entry) bool { return v == e })
package cmap
