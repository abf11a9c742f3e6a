package ticketportal

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mec/internal/event"
	"mec/internal/portals"
)

const (
	categorySelector = "nav div#filterMenu div#filter_subkategorie > label"
	panelSelector    = "div.panel-blok:not(.super-nove-top):not(.donekonecna)"
	concertSelector  = "div.koncert > div.thumbnail > a"
	ticketSelector   = "section#vstupenky > div[id^='vstupenka-']"
	nameSelector     = ".ticket-info > .detail > .event"
	daySelector      = "div.ticket-date div.date div.day"
	locationSelector = "div.ticket-info div.detail div[itemprop='location']"
	soldOutSelector  = "div.ticket-info > div.status > div.status-content"
	addressCountry   = "CZ"
)

var (
	errNoName      = errors.New("missing event name")
	errNoStart     = errors.New("missing event start date")
	errNoVenue     = errors.New("missing venue info")
	errNoVenueData = errors.New("missing venue data")
)

// categories lists the genre filter labels.
func categories(doc *goquery.Document) []string {
	var out []string
	doc.Find(categorySelector).Each(func(_ int, s *goquery.Selection) {
		if name := portals.Text(s); name != "" {
			out = append(out, name)
		}
	})
	return out
}

// panelLinks returns the concert links of the eligible panels in page order.
// A multi-date listing shows one entry per date, so links may repeat.
func panelLinks(doc *goquery.Document) []string {
	var out []string
	doc.Find(panelSelector).Find(concertSelector).Each(func(_ int, s *goquery.Selection) {
		if link := portals.Href(doc, s); link != "" {
			out = append(out, link)
		}
	})
	return out
}

// ticketRow is one dated entry on an event page.
type ticketRow struct {
	Name      string
	Start     time.Time
	VenueURL  string
	VenueName string
	VenueCity string
	SoldOut   bool
}

// ticketRows parses every ticket entry on an event page. Entries that fail
// to parse are returned as errors alongside the good ones.
func ticketRows(doc *goquery.Document) ([]ticketRow, []error) {
	var rows []ticketRow
	var errs []error
	doc.Find(ticketSelector).Each(func(i int, s *goquery.Selection) {
		row, err := parseTicketRow(doc, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticket %d: %w", i+1, err))
			return
		}
		rows = append(rows, row)
	})
	return rows, errs
}

// ticketCount reports how many ticket entries the page hosts, parseable or not.
func ticketCount(doc *goquery.Document) int {
	return doc.Find(ticketSelector).Length()
}

func parseTicketRow(doc *goquery.Document, s *goquery.Selection) (ticketRow, error) {
	name := portals.OwnText(s.Find(nameSelector))
	if name == "" {
		return ticketRow{}, errNoName
	}
	raw, _ := s.Find(daySelector).First().Attr("content")
	if strings.TrimSpace(raw) == "" {
		return ticketRow{}, errNoStart
	}
	start, err := portals.ParseTime(raw, portals.Prague)
	if err != nil {
		return ticketRow{}, fmt.Errorf("start date: %w", err)
	}
	location := s.Find(locationSelector).First()
	if location.Length() == 0 {
		return ticketRow{}, errNoVenue
	}
	return ticketRow{
		Name:      name,
		Start:     start,
		VenueURL:  portals.Href(doc, location.Find("a.building")),
		VenueName: portals.Text(location.Find("a.building > span").First()),
		VenueCity: portals.Text(location.Find("div[itemprop='address'] span").First()),
		SoldOut:   s.Find(soldOutSelector).Length() > 0,
	}, nil
}

// parseVenuePage reads a venue detail page: the name, the "city, street"
// cell and the coordinates from the map link's daddr parameter.
func parseVenuePage(doc *goquery.Document) (*event.Venue, error) {
	name := portals.Text(doc.Find(".detail-content > h1").First())
	if name == "" {
		return nil, errors.New("missing venue name")
	}
	cell := doc.Find("div.detail-content section#shortInfo td").Eq(1)
	if cell.Length() == 0 {
		return nil, errors.New("missing venue address data")
	}
	city, rest, _ := strings.Cut(cell.Text(), ",")
	city = strings.TrimSpace(city)
	street, _, _ := strings.Cut(strings.TrimSpace(rest), "\n")
	street = strings.TrimSpace(street)
	if city == "" {
		return nil, errors.New("missing venue city")
	}
	if street == "" {
		return nil, errors.New("missing venue address")
	}

	venue := event.NewVenue(name)
	venue.Address = event.NewAddress(addressCountry, city, street)
	if lat, lon, ok := mapCoordinates(portals.Href(doc, cell.Find("a"))); ok {
		venue.SetCoordinates(lat, lon)
	}
	return venue, nil
}

func mapCoordinates(link string) (float64, float64, bool) {
	if link == "" {
		return 0, 0, false
	}
	u, err := url.Parse(link)
	if err != nil {
		return 0, 0, false
	}
	latRaw, lonRaw, ok := strings.Cut(u.Query().Get("daddr"), ",")
	if !ok {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// fallbackVenue builds a venue from the ticket row alone.
func fallbackVenue(row ticketRow) (*event.Venue, error) {
	if row.VenueName == "" || row.VenueCity == "" {
		return nil, errNoVenueData
	}
	venue := event.NewVenue(row.VenueName)
	venue.Address = event.NewAddress(addressCountry, row.VenueCity, "")
	return venue, nil
}

// copyVenue clones a memoized venue with fresh identifiers, since venues are
// owned by a single event.
func copyVenue(v *event.Venue) *event.Venue {
	out := event.NewVenue(v.Name)
	if v.Latitude != nil && v.Longitude != nil {
		out.SetCoordinates(*v.Latitude, *v.Longitude)
	}
	if v.Address != nil {
		out.Address = event.NewAddress(v.Address.Country, v.Address.Locality, v.Address.Street)
	}
	return out
}
