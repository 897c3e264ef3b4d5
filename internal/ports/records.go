package ports

import "encoding/json"

// RecordBackend is the raw persistence contract the stores sit on: a flat
// mapping of record id to raw JSON document. Absent or corrupt storage must
// degrade to an empty mapping, never an error, so one bad file cannot block
// access to the rest of the data.
//
// Access is read-modify-write without any concurrency token; the engine
// assumes a single writer. Multi-process access needs external locking.
type RecordBackend interface {
	// Read returns every stored record. Missing or unreadable storage yields
	// an empty map.
	Read() (map[string]json.RawMessage, error)
	// Write replaces the entire record set.
	Write(records map[string]json.RawMessage) error
	// Exists reports whether the underlying storage has been created.
	Exists() bool
}
