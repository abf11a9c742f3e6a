package rdf

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Discriminator selects how a property value becomes an RDF object.
type Discriminator int

const (
	// Plain emits a simple literal, or an IRI link for nested entities.
	Plain Discriminator = iota
	// Datatype emits a typed literal.
	Datatype
	// Language emits a language-tagged literal.
	Language
	// Enum looks the value up in a fixed value to IRI table.
	Enum
)

func (d Discriminator) String() string {
	switch d {
	case Plain:
		return "plain"
	case Datatype:
		return "datatype"
	case Language:
		return "language"
	case Enum:
		return "enum"
	default:
		return fmt.Sprintf("discriminator(%d)", int(d))
	}
}

// Property maps one entity field onto a predicate.
type Property struct {
	Field     string
	Predicate string
	Kind      Discriminator
	Datatype  string
	Language  string
	Enum      map[string]string
}

// Class declares the ontology class of an entity type, the namespace its
// subject IRIs are minted in, and its properties in serialization order.
type Class struct {
	Name       string
	IRI        string
	Namespace  string
	Properties []Property
}

// Mapping is a validated, immutable set of class declarations.
type Mapping struct {
	classes map[string]Class
}

// NewMapping validates the declarations and indexes them by class name.
func NewMapping(classes ...Class) (*Mapping, error) {
	if len(classes) == 0 {
		return nil, errors.New("mapping declares no classes")
	}
	m := &Mapping{classes: make(map[string]Class, len(classes))}
	for _, class := range classes {
		if err := validateClass(class); err != nil {
			return nil, err
		}
		if _, dup := m.classes[class.Name]; dup {
			return nil, fmt.Errorf("class %s declared twice", class.Name)
		}
		m.classes[class.Name] = class
	}
	return m, nil
}

// MustMapping is NewMapping for package-level tables; it panics on invalid input.
func MustMapping(classes ...Class) *Mapping {
	m, err := NewMapping(classes...)
	if err != nil {
		panic(err)
	}
	return m
}

// Class returns the declaration for name.
func (m *Mapping) Class(name string) (Class, bool) {
	if m == nil {
		return Class{}, false
	}
	c, ok := m.classes[name]
	return c, ok
}

func validateClass(c Class) error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("class without name")
	}
	if !isAbsoluteIRI(c.IRI) {
		return fmt.Errorf("class %s: invalid class IRI %q", c.Name, c.IRI)
	}
	if !isAbsoluteIRI(c.Namespace) {
		return fmt.Errorf("class %s: invalid namespace %q", c.Name, c.Namespace)
	}
	seen := make(map[string]struct{}, len(c.Properties))
	for _, p := range c.Properties {
		if p.Field == "" {
			return fmt.Errorf("class %s: property without field name", c.Name)
		}
		if _, dup := seen[p.Field]; dup {
			return fmt.Errorf("class %s: field %s mapped twice", c.Name, p.Field)
		}
		seen[p.Field] = struct{}{}
		if !isAbsoluteIRI(p.Predicate) {
			return fmt.Errorf("class %s: field %s: invalid predicate %q", c.Name, p.Field, p.Predicate)
		}
		switch p.Kind {
		case Plain:
		case Datatype:
			if !isAbsoluteIRI(p.Datatype) {
				return fmt.Errorf("class %s: field %s: datatype IRI required", c.Name, p.Field)
			}
		case Language:
			if _, err := language.Parse(p.Language); err != nil {
				return fmt.Errorf("class %s: field %s: invalid language tag %q: %w", c.Name, p.Field, p.Language, err)
			}
		case Enum:
			if len(p.Enum) == 0 {
				return fmt.Errorf("class %s: field %s: enum table is empty", c.Name, p.Field)
			}
			for value, iri := range p.Enum {
				if !isAbsoluteIRI(iri) {
					return fmt.Errorf("class %s: field %s: enum value %q maps to invalid IRI %q", c.Name, p.Field, value, iri)
				}
			}
		default:
			return fmt.Errorf("class %s: field %s: unknown discriminator %v", c.Name, p.Field, p.Kind)
		}
	}
	return nil
}

func isAbsoluteIRI(value string) bool {
	if value == "" || strings.ContainsAny(value, " <>\"") {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme != ""
}
