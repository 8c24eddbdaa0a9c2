// Package daemon runs the long-lived audioshelf server process.
//
// It holds a flock-based lock in the data directory so only one instance
// serves a library database, wires the store into the API services, serves
// them over HTTP together with the event socket and Prometheus metrics, and
// runs each library's scheduled folder check.
//
// Request handling lives in httpapi and the services in api; the daemon only
// owns startup, shutdown and scheduling.
package daemon
