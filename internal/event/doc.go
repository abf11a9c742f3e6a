// Package event defines the canonical MusicEvent record shared by every
// source adapter, the queue, and the handler.
//
// Constructors mint time-ordered UUIDv7 identifiers, Normalize applies the
// single permitted post-extraction cleanup, and Validator reports every
// invariant violation as a Failure list instead of an error. Ontology binds
// the model to schema.org for the rdf serializer.
package event
