// Package cli implements the command-line interface for campushub.
//
// The cli package provides the Cobra-based CLI: event CRUD, attendee
// registration, CSV import/export, calendar export and the HTTP server. It
// wires configuration, storage backends and notifiers to the event store.
package cli
