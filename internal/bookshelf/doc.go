// Package bookshelf mounts entity cards into virtualized shelf rows.
//
// A client renders a window of a much larger logical list (books, series,
// collections, playlists or albums). For each visible index the Pool either
// reuses the card it created earlier or asks the Factory for a new one,
// positions it on its shelf with the geometry from Place, attaches it to the
// shelf container of a Surface render tree and synchronises its selection
// state. Cards are never evicted one by one; Reset drops every card at once
// and invalidates creations still in flight.
package bookshelf
