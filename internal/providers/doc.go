// Package providers talks to external metadata sources.
//
// CustomAdapter searches operator-registered providers that implement the
// custom metadata provider protocol (GET <url>/search returning a
// "matches" array). AuthorFinder looks authors up on Audnexus and
// downloads their portraits. Both share the HTTP conventions of this
// package: context-bound requests, a per-client timeout and a request
// limiter.
package providers
