// Package store provides the durable stores behind datagram delivery: the
// dedup id counter and the unacknowledged datagram records.
//
// DB keeps both in SQLite through GORM. Two drivers are supported: the pure
// Go modernc.org/sqlite driver ("sqlite", the default) and the cgo
// mattn/go-sqlite3 driver ("sqlite3"). Memory keeps them in process memory
// and can inject faults for tests.
package store
