// Package modem defines the narrow gateway to the satellite modem.
//
// The gateway is an external collaborator: it owns the vendor wire encoding
// and reports command outcomes asynchronously. Every command returns a
// channel that yields exactly one result code. Notifications (modem state,
// radio state, inbound datagrams) are delivered through registered callbacks,
// possibly from arbitrary goroutines.
//
// Simulator is an in-process Gateway used by satctl and by end-to-end tests.
package modem
