package rdf

// Namespaces used by the music event ontology. They are fixed and never
// configurable because subject IRIs must stay stable across deployments.
const (
	NamespaceRDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceSchema = "http://schema.org/"
	NamespaceEntity = "http://music-event-connect.cz/entity/"
	NamespaceXSD    = "http://www.w3.org/2001/XMLSchema#"
)

const (
	RDFType = NamespaceRDF + "type"

	XSDString   = NamespaceXSD + "string"
	XSDDateTime = NamespaceXSD + "dateTime"
	XSDDecimal  = NamespaceXSD + "decimal"
	XSDAnyURI   = NamespaceXSD + "anyURI"
)

// Schema returns the schema.org IRI for a term.
func Schema(term string) string {
	return NamespaceSchema + term
}
