// Package coexist tracks the power state of radios that must be off while
// the satellite link is active.
//
// The Monitor is fed radio notifications from the modem gateway. The arbiter
// asks it whether every required radio is off before it reports an enable as
// complete, and registers OnAllRadiosDisabled to learn when that becomes
// true. With a RadioController attached the monitor can also switch the
// required radios off itself and restore them once the link is disabled.
package coexist
