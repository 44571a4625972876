// Package arbiter serializes enable, disable and attribute-update requests
// for the shared satellite modem.
//
// All session state is owned by one serialized worker. Callers submit
// requests with RequestEnabled and receive exactly one result code through
// their callback. Modem results, modem state notifications, radio
// coexistence notifications and request deadlines are all posted into the
// same worker, so they are processed strictly in arrival order.
//
// Arbitration rules:
//
//   - a pending disable rejects new enables (DisableInProgress) and
//     coalesces new disables (RequestInProgress);
//   - a disable always preempts an in-flight enable, which resolves Aborted;
//   - an enable arriving while an enable is in flight is evaluated as an
//     attribute update against the in-flight flags and resolved once the
//     enable completes;
//   - demo mode may be switched off mid-session but never on.
//
// An enable is reported successful only after the modem confirmed it and
// every radio the coexistence monitor requires off is off. A disable is
// reported successful once the modem acknowledged the command and reported
// itself off, in either order.
//
// Every forwarded request runs a deadline keyed by its request id. A late
// modem result for a request that already resolved is recognised by id and
// dropped. An enable that times out is followed by a corrective disable, and
// an active modem the arbiter knows nothing about is switched off.
package arbiter
