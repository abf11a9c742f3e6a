package event

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var genreCase = cases.Lower(language.English)

// Normalize trims text fields, lower-cases genres, and collapses the genre and
// sameAs lists into ordered sets. It is the only mutation applied to an event
// after an adapter builds it.
func (e *MusicEvent) Normalize() {
	if e == nil {
		return
	}
	e.Name = strings.TrimSpace(e.Name)
	e.URL = strings.TrimSpace(e.URL)
	for _, a := range e.Artists {
		if a == nil {
			continue
		}
		a.Name = strings.TrimSpace(a.Name)
		a.Genres = orderedSet(a.Genres, func(s string) string { return genreCase.String(strings.TrimSpace(s)) })
		a.SameAs = orderedSet(a.SameAs, strings.TrimSpace)
	}
	for _, v := range e.Venues {
		if v == nil {
			continue
		}
		v.Name = strings.TrimSpace(v.Name)
		if v.Address != nil {
			v.Address.Country = strings.ToUpper(strings.TrimSpace(v.Address.Country))
			v.Address.Locality = strings.TrimSpace(v.Address.Locality)
			v.Address.Street = strings.TrimSpace(v.Address.Street)
		}
	}
	if e.Ticket != nil {
		e.Ticket.URL = strings.TrimSpace(e.Ticket.URL)
	}
}

func orderedSet(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		v = norm(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
