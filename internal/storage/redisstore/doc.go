// Package redisstore implements service.SessionStore on Redis.
//
// Sessions are JSON values, optionally sealed (WithCipher), under "<prefix>:<id>" with the idle TTL applied
// on every write. Update uses WATCH and a MULTI/EXEC pipeline; when another
// client changes the key first the transaction is retried with fresh state.
package redisstore
