// Package library defines the catalogue entities served by audioshelf:
// libraries and their settings, folders, authors, series, books (library
// items) with their audio files, collections, playlists and custom metadata
// providers.
//
// Entities carry their own update rules (which keys a patch may touch and
// whether anything changed) and the JSON shapes returned by the HTTP API.
// Name helpers implement the catalogue's sorting conventions: "Last, First"
// author names, leading-article handling for titles and natural ordering of
// series sequences.
package library
