// Package rdf turns mapped entities into RDF triples.
//
// A Mapping is an explicit table of class declarations: each names the
// ontology class IRI, the namespace subject IRIs are minted in, and the
// ordered list of field to predicate bindings with their discriminator
// (plain, datatype, language, or enum). Serialize walks an Entity through
// that table without reflection and returns the full triple set of the
// reachable entity graph, or an error and nothing. FormatNTriples renders
// the result for a triple store.
package rdf
