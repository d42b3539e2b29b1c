// Package daemon combines the case store and API server into a single
// lifecycle with flock-based locking to prevent multiple instances.
package daemon
