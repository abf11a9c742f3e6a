package event

import "mec/internal/rdf"

// Class names used in the ontology mapping.
const (
	ClassMusicEvent = "MusicEvent"
	ClassArtist     = "Artist"
	ClassVenue      = "Venue"
	ClassAddress    = "Address"
	ClassTicket     = "Ticket"
)

var identifier = rdf.Property{Field: "id", Predicate: rdf.Schema("identifier")}

// Ontology is the schema.org mapping of the canonical model. Property order
// is the serialization order.
var Ontology = rdf.MustMapping(
	rdf.Class{
		Name:      ClassMusicEvent,
		IRI:       rdf.Schema("MusicEvent"),
		Namespace: rdf.NamespaceEntity,
		Properties: []rdf.Property{
			identifier,
			{Field: "name", Predicate: rdf.Schema("name")},
			{Field: "url", Predicate: rdf.Schema("url"), Kind: rdf.Datatype, Datatype: rdf.XSDAnyURI},
			{Field: "artists", Predicate: rdf.Schema("performer")},
			{Field: "venues", Predicate: rdf.Schema("location")},
			{Field: "doorTime", Predicate: rdf.Schema("doorTime"), Kind: rdf.Datatype, Datatype: rdf.XSDDateTime},
			{Field: "startDate", Predicate: rdf.Schema("startDate"), Kind: rdf.Datatype, Datatype: rdf.XSDDateTime},
			{Field: "endDate", Predicate: rdf.Schema("endDate"), Kind: rdf.Datatype, Datatype: rdf.XSDDateTime},
			{Field: "ticket", Predicate: rdf.Schema("offers")},
		},
	},
	rdf.Class{
		Name:      ClassArtist,
		IRI:       rdf.Schema("MusicGroup"),
		Namespace: rdf.NamespaceEntity,
		Properties: []rdf.Property{
			identifier,
			{Field: "name", Predicate: rdf.Schema("name")},
			{Field: "genres", Predicate: rdf.Schema("genre"), Kind: rdf.Language, Language: "en"},
			{Field: "sameAs", Predicate: rdf.Schema("sameAs"), Kind: rdf.Datatype, Datatype: rdf.XSDAnyURI},
		},
	},
	rdf.Class{
		Name:      ClassVenue,
		IRI:       rdf.Schema("Place"),
		Namespace: rdf.NamespaceEntity,
		Properties: []rdf.Property{
			identifier,
			{Field: "name", Predicate: rdf.Schema("name")},
			{Field: "latitude", Predicate: rdf.Schema("latitude"), Kind: rdf.Datatype, Datatype: rdf.XSDDecimal},
			{Field: "longitude", Predicate: rdf.Schema("longitude"), Kind: rdf.Datatype, Datatype: rdf.XSDDecimal},
			{Field: "address", Predicate: rdf.Schema("address")},
		},
	},
	rdf.Class{
		Name:      ClassAddress,
		IRI:       rdf.Schema("PostalAddress"),
		Namespace: rdf.NamespaceEntity,
		Properties: []rdf.Property{
			identifier,
			{Field: "country", Predicate: rdf.Schema("addressCountry")},
			{Field: "locality", Predicate: rdf.Schema("addressLocality")},
			{Field: "street", Predicate: rdf.Schema("streetAddress")},
		},
	},
	rdf.Class{
		Name:      ClassTicket,
		IRI:       rdf.Schema("Offer"),
		Namespace: rdf.NamespaceEntity,
		Properties: []rdf.Property{
			identifier,
			{Field: "url", Predicate: rdf.Schema("url"), Kind: rdf.Datatype, Datatype: rdf.XSDAnyURI},
			{Field: "availability", Predicate: rdf.Schema("availability"), Kind: rdf.Enum, Enum: map[string]string{
				string(InStock): rdf.Schema("InStock"),
				string(SoldOut): rdf.Schema("SoldOut"),
			}},
		},
	},
)

// Serialize renders a validated event as triples using Ontology.
func Serialize(e *MusicEvent) ([]rdf.Triple, error) {
	return Ontology.Serialize(e)
}

func (e *MusicEvent) RDFClass() string { return ClassMusicEvent }
func (e *MusicEvent) RDFID() string    { return e.ID }

func (e *MusicEvent) RDFField(name string) any {
	switch name {
	case "id":
		return e.ID
	case "name":
		return e.Name
	case "url":
		return e.URL
	case "artists":
		out := make([]rdf.Entity, 0, len(e.Artists))
		for _, a := range e.Artists {
			if a != nil {
				out = append(out, a)
			}
		}
		return out
	case "venues":
		out := make([]rdf.Entity, 0, len(e.Venues))
		for _, v := range e.Venues {
			if v != nil {
				out = append(out, v)
			}
		}
		return out
	case "doorTime":
		return e.DoorTime
	case "startDate":
		return e.StartDate
	case "endDate":
		return e.EndDate
	case "ticket":
		if e.Ticket == nil {
			return nil
		}
		return e.Ticket
	}
	return nil
}

func (a *Artist) RDFClass() string { return ClassArtist }
func (a *Artist) RDFID() string    { return a.ID }

func (a *Artist) RDFField(name string) any {
	switch name {
	case "id":
		return a.ID
	case "name":
		return a.Name
	case "genres":
		return a.Genres
	case "sameAs":
		return a.SameAs
	}
	return nil
}

func (v *Venue) RDFClass() string { return ClassVenue }
func (v *Venue) RDFID() string    { return v.ID }

func (v *Venue) RDFField(name string) any {
	switch name {
	case "id":
		return v.ID
	case "name":
		return v.Name
	case "latitude":
		return v.Latitude
	case "longitude":
		return v.Longitude
	case "address":
		if v.Address == nil {
			return nil
		}
		return v.Address
	}
	return nil
}

func (a *Address) RDFClass() string { return ClassAddress }
func (a *Address) RDFID() string    { return a.ID }

func (a *Address) RDFField(name string) any {
	switch name {
	case "id":
		return a.ID
	case "country":
		return a.Country
	case "locality":
		return a.Locality
	case "street":
		return a.Street
	}
	return nil
}

func (t *Ticket) RDFClass() string { return ClassTicket }
func (t *Ticket) RDFID() string    { return t.ID }

func (t *Ticket) RDFField(name string) any {
	switch name {
	case "id":
		return t.ID
	case "url":
		return t.URL
	case "availability":
		return string(t.Availability)
	}
	return nil
}
