// Package event defines the campus event record and its attendees.
//
// An Event is the unit persisted by the store: its JSON shape is the on-disk
// layout of the event collection. Identifiers are random UUIDv4 strings
// assigned once, at creation for events and at registration for attendees.
package event
