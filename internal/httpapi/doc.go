// Package httpapi exposes the audioshelf services over HTTP.
//
// Routes are registered on a gorilla/mux router. Every /api route requires
// a bearer token when users are configured; the authenticated user travels
// on the request context. Entity routes additionally check the user's
// permissions by method: DELETE needs can_delete, PATCH, POST and PUT need
// can_update. Service errors are mapped onto status codes and written as
// {"error": "..."} bodies.
package httpapi
