// Package main hosts the audioshelf CLI entrypoint and command graph.
//
// Commands open the library database directly and call the same services
// the daemon serves over HTTP, so maintenance works with or without a
// running daemon. List output is a table on terminals and can be switched
// to JSON or YAML with --output.
package main
