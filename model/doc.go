// Package model defines the JSON boundary types of the shard tools.
//
// Shard bits and identifiers are unaffected by any projection here; these
// structs are what the CLI prints and what callers may persist.
package model
