// Package textutil provides text helpers for fuzzy name matching and
// filesystem-safe tokens.
//
// Fingerprints are term-frequency vectors over lowercased tokens; names are
// compared with cosine similarity. Tokens shorter than two characters are
// dropped so stray initials do not dominate short names.
package textutil
