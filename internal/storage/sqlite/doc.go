// Package sqlite persists feature extraction runs in a SQLite database.
//
// A run records what was computed (source and target paths, volume,
// feature names, provenance trail) together with one row per target point
// and feature. NaN feature values are stored as NULL and read back as NaN.
//
// The schema is owned by the embedded migrations under migrations/ and is
// applied by Open; nothing else in the module issues DDL.
package sqlite
