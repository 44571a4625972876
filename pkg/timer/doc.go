// Package timer implements keyed, cancelable and reschedulable timers.
//
// Timers are independent of any event loop: on expiry the Manager invokes the
// callback registered with OnExpiry, which owners normally use to post an
// event back into their own serialized worker.
//
// # Keys
//
// Each timer is identified by a comparable key chosen by the owner (a request
// id, a (datagram, listener) pair, ...). Setting a timer for a key that is
// already running replaces it; there is no stacking.
//
// # Clocks
//
// The Manager reads time and schedules callbacks through a Clock. Production
// code uses RealClock. Tests use FakeClock and drive expiry explicitly with
// Advance, which makes retry and timeout behavior fully deterministic.
//
// # Stale expiry
//
// Cancel and replace are race free with respect to the Manager: an expiry that
// was already in flight for a replaced or cancelled timer is dropped. Owners
// that post expiries into a queue must still validate the key against their
// own state when the event runs, since a cancel can happen after the post.
package timer
