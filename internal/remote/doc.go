// Package remote translates case operations into HTTP calls against an
// echosync-compatible backend and normalizes responses and failures into the
// shared error kinds.
//
// Every request attaches a bearer token when the session token source yields
// one; a missing token is not an error. Unreachable backends and malformed
// bodies surface as transport errors, 404s as not-found with the
// server-provided message, and other 4xx responses as validation errors.
package remote
