// Package server implements the echosyncd HTTP API over the local case
// store: case CRUD, analysis results, patient grouping, and login.
package server
