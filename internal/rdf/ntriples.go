package rdf

import (
	"io"
	"strings"
)

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(t Triple) {
	w.sb.WriteByte('<')
	w.sb.WriteString(t.Subject)
	w.sb.WriteString("> <")
	w.sb.WriteString(t.Predicate)
	w.sb.WriteString("> ")
	w.sb.WriteString(formatTerm(t.Object))
	w.sb.WriteString(" .\n")
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

// FormatNTriples renders triples as an N-Triples document.
func FormatNTriples(triples []Triple) string {
	w := NewNTriplesWriter()
	for _, t := range triples {
		w.WriteTriple(t)
	}
	return w.String()
}

// WriteNTriples streams triples to out.
func WriteNTriples(out io.Writer, triples []Triple) error {
	_, err := io.WriteString(out, FormatNTriples(triples))
	return err
}

func formatTerm(t Term) string {
	if t.Kind == IRI {
		return "<" + t.Value + ">"
	}
	lit := `"` + escapeString(t.Value) + `"`
	switch {
	case t.Language != "":
		return lit + "@" + t.Language
	case t.Datatype != "" && t.Datatype != XSDString:
		return lit + "^^<" + t.Datatype + ">"
	default:
		return lit
	}
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}
