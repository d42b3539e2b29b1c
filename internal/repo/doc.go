// Package repo exposes case storage behind one interface regardless of
// whether the process works against the local SQLite store or a remote
// backend. The backend is fixed when the repository is constructed.
package repo
