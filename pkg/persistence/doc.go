// Package persistence keeps the datagram id counter and the unacknowledged
// datagram records in a single JSON state file.
//
// It is the file-based alternative to the SQLite store for hosts where a
// database is unwanted. Every mutation rewrites the whole file through a
// temporary file and a rename, so a crash leaves either the old or the new
// state on disk.
package persistence
