package ticketmaster

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"mec/internal/event"
	"mec/internal/portals"
)

// selfListingSubType marks attractions that describe the listing itself
// rather than a performer.
const selfListingSubType = "koncert"

const undefinedGenre = "undefined"

var errCancelled = errors.New("event is cancelled or postponed")

// toEvent maps one Discovery API event. fallback is the zone used for local
// timestamps when neither the event nor its venue names one.
func toEvent(src apiEvent, fallback *time.Location) (*event.MusicEvent, error) {
	availability, err := availabilityFor(src.Dates.Status.Code)
	if err != nil {
		return nil, err
	}

	loc := eventLocation(src, fallback)
	start, err := startTime(src.Dates.Start, loc)
	if err != nil {
		return nil, err
	}

	ev := event.NewMusicEvent(src.Name, src.URL, start)
	if src.Dates.Access != nil && src.Dates.Access.StartDateTime != "" {
		doors, err := portals.ParseTime(src.Dates.Access.StartDateTime, loc)
		if err != nil {
			return nil, fmt.Errorf("door time: %w", err)
		}
		ev.DoorTime = &doors
	}

	fallbackGenres := genreNames(src.Classifications)
	for _, attraction := range src.Embedded.Attractions {
		if isSelfListing(attraction) {
			continue
		}
		artist := event.NewArtist(attraction.Name)
		artist.Genres = genreNames(attraction.Classifications)
		if len(artist.Genres) == 0 {
			artist.Genres = slices.Clone(fallbackGenres)
		}
		artist.SameAs = externalLinks(attraction.ExternalLinks)
		ev.AddArtist(artist)
	}

	for _, v := range src.Embedded.Venues {
		ev.Venues = append(ev.Venues, toVenue(v))
	}

	ev.Ticket = event.NewTicket(src.URL, availability)
	return ev, nil
}

func availabilityFor(code string) (event.Availability, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "onsale", "rescheduled":
		return event.InStock, nil
	case "cancelled", "canceled", "postponed":
		return "", fmt.Errorf("%w: status %q", errCancelled, code)
	default:
		return event.SoldOut, nil
	}
}

func eventLocation(src apiEvent, fallback *time.Location) *time.Location {
	zones := []string{src.Dates.Timezone}
	for _, v := range src.Embedded.Venues {
		zones = append(zones, v.Timezone)
	}
	for _, name := range zones {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if fallback != nil {
		return fallback
	}
	return portals.Prague
}

// startTime prefers the zoned dateTime, which the API omits for some
// statuses, and falls back to the local date and time.
func startTime(d apiEventDate, loc *time.Location) (time.Time, error) {
	if d.DateTime != "" {
		return portals.ParseTime(d.DateTime, loc)
	}
	if d.LocalDate == "" {
		return time.Time{}, errors.New("start date missing")
	}
	if d.LocalTime != "" && !d.NoSpecificTime {
		return portals.ParseTime(d.LocalDate+"T"+d.LocalTime, loc)
	}
	return portals.ParseTime(d.LocalDate, loc)
}

func isSelfListing(a apiAttraction) bool {
	for _, c := range a.Classifications {
		if strings.EqualFold(strings.TrimSpace(c.SubType.Name), selfListingSubType) {
			return true
		}
	}
	return false
}

func genreNames(classifications []apiClassification) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || key == undefinedGenre {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	for _, c := range classifications {
		add(c.Genre.Name)
		add(c.SubGenre.Name)
	}
	return out
}

func externalLinks(links map[string][]apiLinkEntry) []string {
	var out []string
	for _, kind := range slices.Sorted(maps.Keys(links)) {
		for _, link := range links[kind] {
			if u := strings.TrimSpace(link.URL); u != "" && !slices.Contains(out, u) {
				out = append(out, u)
			}
		}
	}
	return out
}

func toVenue(src apiVenue) *event.Venue {
	venue := event.NewVenue(src.Name)
	if src.Location != nil {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(src.Location.Latitude), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(src.Location.Longitude), 64)
		if latErr == nil && lonErr == nil {
			venue.SetCoordinates(lat, lon)
		}
	}
	if city := strings.TrimSpace(src.City.Name); city != "" {
		venue.Address = event.NewAddress(src.Country.CountryCode, city, src.Address.Line1)
	}
	return venue
}
