// Package storage defines the durable-storage port used by the event store
// and its adapters.
//
// A Blob holds one opaque document. The store reads the whole document,
// changes it in memory and writes the whole document back, so adapters only
// need to load and replace bytes under a single name. Adapters exist for a
// local file (the default, under ~/.local/share/campushub/), process memory,
// a GitHub Gist and a Postgres row; EncryptedBlob wraps any of them.
package storage
