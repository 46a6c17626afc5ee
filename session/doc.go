// Package session owns the authToken cookie: its attributes, how it is read
// from requests, and the persisters that store a finished flow's token in a
// response, a cookie jar, or memory.
//
// # Architecture boundaries
//
// Persisters here satisfy goAuthFlow.SessionPersister structurally; this
// package does not import goAuthFlow. It never parses or validates tokens;
// that belongs to jwt/ and middleware/.
package session
