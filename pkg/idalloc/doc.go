// Package idalloc implements the persistent datagram id allocator.
//
// Ids are cyclic: next = (last + 1) mod MaxID. The new value is written to
// the CounterStore before it is handed out, so a restart never re-issues an
// id that was already given to a datagram within one allocator generation.
//
// When the store is unreadable or unwritable the allocator keeps counting in
// memory and logs the fault; the next successful write persists the
// in-memory value again.
//
// An Allocator is not safe for concurrent use. It is owned by the delivery
// manager's serialized worker.
package idalloc
