package rdf

import (
	"fmt"
	"strconv"
	"time"
)

// Entity is implemented by every type the serializer can walk. RDFField
// returns the value of a mapped field as one of: string, []string,
// time.Time, *time.Time, float64, *float64, Entity, []Entity, or nil.
type Entity interface {
	RDFClass() string
	RDFID() string
	RDFField(name string) any
}

// TermKind distinguishes IRIs from literals.
type TermKind int

const (
	IRI TermKind = iota
	Literal
)

// Term is an RDF object.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Language string
}

// Triple is one subject, predicate, object statement.
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

// SerializationError names the class, field, and value that could not be
// serialized.
type SerializationError struct {
	Class  string
	Field  string
	Value  string
	Reason string
}

func (e *SerializationError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("rdf: %s.%s=%q: %s", e.Class, e.Field, e.Value, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("rdf: %s.%s: %s", e.Class, e.Field, e.Reason)
	default:
		return fmt.Sprintf("rdf: %s: %s", e.Class, e.Reason)
	}
}

// DateTimeLayout is the lexical form of xsd:dateTime literals.
const DateTimeLayout = "2006-01-02T15:04:05.000Z"

// SubjectIRI builds the subject IRI of an entity under its class namespace.
func (m *Mapping) SubjectIRI(e Entity) (string, error) {
	class, ok := m.Class(e.RDFClass())
	if !ok {
		return "", &SerializationError{Class: e.RDFClass(), Reason: "no ontology mapping for class"}
	}
	id := e.RDFID()
	if id == "" {
		return "", &SerializationError{Class: class.Name, Reason: "entity has no identifier"}
	}
	if !isIDToken(id) {
		return "", &SerializationError{Class: class.Name, Field: "id", Value: id, Reason: "identifier is not an IRI-safe token"}
	}
	return class.Namespace + id, nil
}

// isIDToken accepts the unreserved URI characters, so an identifier can
// never close the IRI it is appended to.
func isIDToken(id string) bool {
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '.', ch == '_', ch == '~':
		default:
			return false
		}
	}
	return true
}

// Serialize walks e and every entity reachable from it and returns the
// triples in declaration order: the type assertion first, then properties,
// with nested entities expanded right after the triple that links them.
// On error no triples are returned.
func (m *Mapping) Serialize(e Entity) ([]Triple, error) {
	s := &walker{mapping: m, visited: make(map[string]struct{})}
	if err := s.entity(e); err != nil {
		return nil, err
	}
	return s.out, nil
}

type walker struct {
	mapping *Mapping
	visited map[string]struct{}
	out     []Triple
}

func (w *walker) entity(e Entity) error {
	subject, err := w.mapping.SubjectIRI(e)
	if err != nil {
		return err
	}
	if _, seen := w.visited[subject]; seen {
		return nil
	}
	w.visited[subject] = struct{}{}

	class, _ := w.mapping.Class(e.RDFClass())
	w.emit(subject, RDFType, Term{Kind: IRI, Value: class.IRI})
	for _, prop := range class.Properties {
		if err := w.value(class, prop, subject, e.RDFField(prop.Field)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) value(class Class, prop Property, subject string, v any) error {
	switch value := v.(type) {
	case nil:
		return nil
	case string:
		if value == "" {
			return nil
		}
		return w.literal(class, prop, subject, value)
	case []string:
		for _, item := range value {
			if item == "" {
				continue
			}
			if err := w.literal(class, prop, subject, item); err != nil {
				return err
			}
		}
		return nil
	case time.Time:
		if value.IsZero() {
			return nil
		}
		return w.literal(class, prop, subject, value.UTC().Format(DateTimeLayout))
	case *time.Time:
		if value == nil {
			return nil
		}
		return w.value(class, prop, subject, *value)
	case float64:
		return w.literal(class, prop, subject, strconv.FormatFloat(value, 'f', -1, 64))
	case *float64:
		if value == nil {
			return nil
		}
		return w.value(class, prop, subject, *value)
	case Entity:
		return w.link(subject, prop, value)
	case []Entity:
		for _, item := range value {
			if item == nil {
				continue
			}
			if err := w.link(subject, prop, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return &SerializationError{Class: class.Name, Field: prop.Field, Reason: fmt.Sprintf("unsupported value type %T", v)}
	}
}

func (w *walker) link(subject string, prop Property, nested Entity) error {
	object, err := w.mapping.SubjectIRI(nested)
	if err != nil {
		return err
	}
	w.emit(subject, prop.Predicate, Term{Kind: IRI, Value: object})
	return w.entity(nested)
}

func (w *walker) literal(class Class, prop Property, subject, lexical string) error {
	term := Term{Kind: Literal, Value: lexical}
	switch prop.Kind {
	case Datatype:
		term.Datatype = prop.Datatype
	case Language:
		term.Language = prop.Language
	case Enum:
		iri, ok := prop.Enum[lexical]
		if !ok {
			return &SerializationError{
				Class:  class.Name,
				Field:  prop.Field,
				Value:  lexical,
				Reason: fmt.Sprintf("no mapping for %q enum value on property %q", lexical, prop.Predicate),
			}
		}
		term = Term{Kind: IRI, Value: iri}
	}
	w.emit(subject, prop.Predicate, term)
	return nil
}

func (w *walker) emit(subject, predicate string, object Term) {
	w.out = append(w.out, Triple{Subject: subject, Predicate: predicate, Object: object})
}
