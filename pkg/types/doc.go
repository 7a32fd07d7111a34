// Package types defines the entity classes, records, configuration, and
// standard errors shared by the snpmirror storage backend, ingestion driver,
// and backup manager.
package types
