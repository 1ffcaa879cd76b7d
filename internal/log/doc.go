// Package log provides structured logging for silo using zerolog.
//
// Init configures the package-level Logger once at process startup; callers
// derive component-scoped child loggers with WithComponent, WithChangeset,
// WithTrove, and WithRepository rather than attaching fields ad hoc, so that
// every log line from the catalog, resolver, or changeset engine carries the
// same field names.
package log
