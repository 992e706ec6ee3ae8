// Package store keeps process-wide keyed maps (instance name to config,
// instance name to current view) that survive restarts through a durable
// Storage.
//
// Responsibilities:
//   - Storage only loads and saves one encoded snapshot per Ref.
//   - Store[V] owns the in-memory map, restores it on construction and gates
//     persistence and notifications on a structural change.
//
// Data flow:
//
//	Save(name, v) -> change gate -> Storage.Save -> subscribers
//	Storage change (Watch) -> Reload -> change gate -> subscribers
//
// Persisted shape:
//
//	{"instances": {"<name>": <value>, ...}}
//
// Restore failures never fail construction: the store logs them and starts
// empty.
package store
