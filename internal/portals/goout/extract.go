package goout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mec/internal/event"
	"mec/internal/portals"
)

// Extraction rules for the rendered goout.net pages.
const (
	linkSelector       = "div.event > div.info > a.title"
	infoLabelSelector  = "section.py-1 div.info-item > div > span"
	headerTimeSelector = "div.detail-header time"
	genreSelector      = "div.py-2 > div.container > div.row a > span"
	ticketSelector     = ".ticket-button"
	spotifySelector    = "header ul.links-row a[aria-label*='Spotify']"
	artistsHeading     = "Performing artists"
	onSaleLabel        = "Tickets"
	autoplaySuffix     = "?autoplay=true"
	addressCountry     = "CZ"
)

var (
	errNoStart   = errors.New("missing start date")
	errNoVenue   = errors.New("missing venue name")
	errNoCity    = errors.New("missing venue city")
	errNoStreet  = errors.New("missing venue address")
	errNoTickets = errors.New("missing ticket button")
)

// artistRef is a performer row with the profile page still to visit.
type artistRef struct {
	Name    string
	Country string
	Profile string
}

// listingLinks returns the absolute detail-page links currently rendered.
func listingLinks(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		link := portals.Href(doc, s)
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out
}

// parseEvent reads one detail page. Artists come back without profile links
// resolved; genres shown on the page are attached to every artist.
func parseEvent(doc *goquery.Document, pageURL string) (*event.MusicEvent, []artistRef, error) {
	name := portals.Text(doc.Find("h1").First())

	times := doc.Find(headerTimeSelector)
	startRaw, _ := times.Eq(0).Attr("datetime")
	if strings.TrimSpace(startRaw) == "" {
		return nil, nil, errNoStart
	}
	start, err := portals.ParseTime(startRaw, portals.Prague)
	if err != nil {
		return nil, nil, fmt.Errorf("start date: %w", err)
	}
	ev := event.NewMusicEvent(name, pageURL, start)

	// The end element's datetime attribute repeats the start, so the visible
	// date is used instead.
	if times.Length() > 1 {
		if end, err := parseEndDate(portals.Text(times.Eq(1))); err == nil {
			ev.EndDate = &end
		}
	}

	if doors, ok := infoValue(doc, "Doors").Find("time").Attr("datetime"); ok {
		if t, err := portals.ParseTime(doors, portals.Prague); err == nil {
			ev.DoorTime = &t
		}
	}

	venue, err := parseVenue(doc)
	if err != nil {
		return nil, nil, err
	}
	ev.Venues = []*event.Venue{venue}

	ticket := doc.Find(ticketSelector).First()
	if ticket.Length() == 0 {
		return nil, nil, errNoTickets
	}
	availability := event.SoldOut
	if portals.Text(ticket) == onSaleLabel {
		availability = event.InStock
	}
	ev.Ticket = event.NewTicket(portals.Href(doc, ticket), availability)

	genres := genreNames(doc)
	refs := performers(doc)
	for _, ref := range refs {
		artist := event.NewArtist(ref.Name)
		artist.Genres = append([]string(nil), genres...)
		ev.AddArtist(artist)
	}
	return ev, refs, nil
}

// parseEndDate reads the dd/MM/yyyy label as midnight in Prague.
func parseEndDate(text string) (time.Time, error) {
	return time.ParseInLocation("02/01/2006", strings.TrimSpace(text), portals.Prague)
}

func infoValue(doc *goquery.Document, label string) *goquery.Selection {
	return portals.LabeledValue(doc.Selection, infoLabelSelector, label, "div.info-item").Children().Eq(1)
}

func parseVenue(doc *goquery.Document) (*event.Venue, error) {
	name := portals.Text(infoValue(doc, "Venue"))
	if name == "" {
		return nil, errNoVenue
	}
	parts := strings.Split(infoValue(doc, "Address").Text(), ",")
	street := strings.TrimSpace(parts[0])
	city := ""
	if len(parts) > 1 {
		city = strings.TrimSpace(parts[1])
	}
	if city == "" {
		return nil, errNoCity
	}
	if street == "" {
		return nil, errNoStreet
	}
	venue := event.NewVenue(name)
	venue.Address = event.NewAddress(addressCountry, city, street)
	return venue, nil
}

func genreNames(doc *goquery.Document) []string {
	var out []string
	doc.Find(genreSelector).Each(func(_ int, s *goquery.Selection) {
		if text := portals.Text(s); text != "" {
			out = append(out, text)
		}
	})
	return out
}

func performers(doc *goquery.Document) []artistRef {
	var refs []artistRef
	doc.Find("h2").Each(func(_ int, h *goquery.Selection) {
		if strings.TrimSpace(h.Text()) != artistsHeading {
			return
		}
		rows := h.NextAllFiltered("div.row").Find("div.profile-box div.content > div:first-child")
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := row.Children()
			name := portals.Text(cells.Eq(0))
			if name == "" {
				return
			}
			refs = append(refs, artistRef{
				Name:    name,
				Country: portals.Text(cells.Eq(1)),
				Profile: portals.Href(doc, cells.Eq(0)),
			})
		})
	})
	return refs
}

// spotifyLink reads the Spotify profile link from an artist page.
func spotifyLink(doc *goquery.Document) string {
	link := portals.Href(doc, doc.Find(spotifySelector))
	return strings.TrimSpace(strings.TrimSuffix(link, autoplaySuffix))
}
