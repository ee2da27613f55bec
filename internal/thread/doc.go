// Package thread provides conversation persistence for aether.
//
// A thread is a named, ordered sequence of turns owned by one
// authenticated user. [Store] persists threads and turns to PostgreSQL;
// [GuestStore] offers the same shape over a device-local cache for
// visitors without an account.
//
// Key operations:
//
//   - [Store.LoadActiveThread] — fetch a thread's turns in creation order
//   - [Store.AppendUserTurn] — record a user turn, lazily creating the
//     thread from the message text on first use
//   - [Store.AppendAssistantTurn] — record an assistant reply
//   - [Store.ListThreads] — an owner's threads, newest first
//
// # Transaction safety
//
// Turn insertion locks the owning session row (SELECT ... FOR UPDATE)
// so concurrent writers cannot collide on sequence numbers. If any step
// fails, the whole transaction rolls back.
//
// # Concurrency
//
// Store is safe for concurrent use; all state lives in PostgreSQL.
// GuestStore serializes access to its cache file with a file lock.
package thread
