// Package api implements the library operations served over HTTP and used by
// the CLI.
//
// Each service wraps the store with the validation, merge rules and event
// broadcasts of one resource: authors (rename and merge, images, Audnexus
// matching), series, library folders, book audio files and bookshelf view
// sessions. Services return the sentinel errors in errors.go so transports
// can map them to status codes without inspecting messages.
//
// Payload types carry camelCase JSON tags for web clients. Timestamps are
// Unix milliseconds.
package api
