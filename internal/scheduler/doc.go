// Package scheduler orders the macros started by a single event dispatch.
//
// The Scheduler does not run macros. It drives an Engine that owns the
// execution slots and decides, per macro, whether to start it right away or
// to queue it behind the slot that the previous macro of the same dispatch
// went to. The last slot used is kept in the cursor:
//
//	s := scheduler.New(engine)
//	s.Chain(macro.RefOf(3)) // started, cursor = slot of macro 3
//	s.Chain(macro.RefOf(5)) // queued behind macro 3 while it plays
//	s.Reset()
//
// A Scheduler is not safe for concurrent use. Callers serialize dispatches.
package scheduler
