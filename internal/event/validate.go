package event

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// DoorPolicy decides how startDate relates to doorTime.
type DoorPolicy int

const (
	// DoorsEqualOrLater accepts a start equal to the door time.
	DoorsEqualOrLater DoorPolicy = iota
	// DoorsStrict requires the start to be after the door time.
	DoorsStrict
)

func (p DoorPolicy) String() string {
	if p == DoorsStrict {
		return "strict"
	}
	return "equal-or-later"
}

// ParseDoorPolicy maps the configuration value onto a policy.
func ParseDoorPolicy(value string) (DoorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "equal-or-later":
		return DoorsEqualOrLater, nil
	case "strict":
		return DoorsStrict, nil
	default:
		return DoorsEqualOrLater, fmt.Errorf("unknown door policy %q", value)
	}
}

// Failure names an offending field and why it was rejected.
type Failure struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (f Failure) String() string {
	return f.Field + ": " + f.Reason
}

// Failures is the ordered result of a validation pass.
type Failures []Failure

// Fields lists the failed field paths in order.
func (f Failures) Fields() []string {
	out := make([]string, len(f))
	for i, failure := range f {
		out[i] = failure.Field
	}
	return out
}

// Err folds the failures into one error, or nil when there are none.
func (f Failures) Err() error {
	if len(f) == 0 {
		return nil
	}
	errs := make([]error, len(f))
	for i, failure := range f {
		errs[i] = errors.New(failure.String())
	}
	return errors.Join(errs...)
}

// Validator checks events against the model invariants. Time-based rules are
// evaluated against Now at validation time, so an event that was valid when
// scraped becomes invalid once its start passes.
type Validator struct {
	Now   func() time.Time
	Doors DoorPolicy
}

// Validate returns every failure found in e. Each field reports at most one
// failure: the first rule it violates.
func (v Validator) Validate(e *MusicEvent) Failures {
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	c := &collector{seen: map[string]struct{}{}}
	if e == nil {
		c.add("event", "is required")
		return c.out
	}

	c.id("id", e.ID)
	c.required("name", e.Name)
	c.url("url", e.URL)

	if name, dup := duplicateName(len(e.Artists), func(i int) *string {
		if e.Artists[i] == nil {
			return nil
		}
		return &e.Artists[i].Name
	}); dup {
		c.add("artists", fmt.Sprintf("artist names must be unique, %q appears more than once", name))
	}
	for i, a := range e.Artists {
		field := fmt.Sprintf("artists[%d]", i)
		if a == nil {
			c.add(field, "is required")
			continue
		}
		c.id(field+".id", a.ID)
		c.required(field+".name", a.Name)
		for j, link := range a.SameAs {
			c.url(fmt.Sprintf("%s.sameAs[%d]", field, j), link)
		}
	}

	if len(e.Venues) == 0 {
		c.add("venues", "at least one venue is required")
	} else if name, dup := duplicateName(len(e.Venues), func(i int) *string {
		if e.Venues[i] == nil {
			return nil
		}
		return &e.Venues[i].Name
	}); dup {
		c.add("venues", fmt.Sprintf("venue names must be unique, %q appears more than once", name))
	}
	for i, venue := range e.Venues {
		c.venue(fmt.Sprintf("venues[%d]", i), venue)
	}

	if e.DoorTime != nil && !e.DoorTime.After(now) {
		c.add("doorTime", "must be in the future")
	}
	switch {
	case e.StartDate.IsZero():
		c.add("startDate", "is required")
	case !e.StartDate.After(now):
		c.add("startDate", "must be in the future")
	case e.DoorTime != nil:
		if v.Doors == DoorsStrict && !e.StartDate.After(*e.DoorTime) {
			c.add("startDate", "must be later than doorTime")
		} else if e.StartDate.Before(*e.DoorTime) {
			c.add("startDate", "must be equal to or later than doorTime")
		}
	}
	if e.EndDate != nil {
		if !e.EndDate.After(now) {
			c.add("endDate", "must be in the future")
		} else if !e.StartDate.IsZero() && !e.EndDate.After(e.StartDate) {
			c.add("endDate", "must be later than startDate")
		}
	}

	if e.Ticket == nil {
		c.add("ticket", "is required")
	} else {
		c.id("ticket.id", e.Ticket.ID)
		c.url("ticket.url", e.Ticket.URL)
		switch e.Ticket.Availability {
		case InStock, SoldOut:
		default:
			c.add("ticket.availability", fmt.Sprintf("must be one of InStock, SoldOut (got %q)", e.Ticket.Availability))
		}
	}
	return c.out
}

func (c *collector) venue(field string, v *Venue) {
	if v == nil {
		c.add(field, "is required")
		return
	}
	c.id(field+".id", v.ID)
	c.required(field+".name", v.Name)
	if v.Latitude != nil && (math.IsNaN(*v.Latitude) || *v.Latitude < -90 || *v.Latitude > 90) {
		c.add(field+".latitude", "must be between -90 and 90")
	}
	if v.Longitude != nil && (math.IsNaN(*v.Longitude) || *v.Longitude < -180 || *v.Longitude > 180) {
		c.add(field+".longitude", "must be between -180 and 180")
	}
	switch {
	case v.Latitude != nil && v.Longitude == nil:
		c.add(field+".longitude", "is required when latitude is set")
	case v.Longitude != nil && v.Latitude == nil:
		c.add(field+".latitude", "is required when longitude is set")
	case v.Latitude == nil && v.Longitude == nil && v.Address == nil:
		c.add(field+".address", "is required when coordinates are absent")
	}
	if v.Address != nil {
		c.id(field+".address.id", v.Address.ID)
		if !isCountryCode(v.Address.Country) {
			c.add(field+".address.country", fmt.Sprintf("must be an ISO 3166-1 alpha-2 code (got %q)", v.Address.Country))
		}
		c.required(field+".address.locality", v.Address.Locality)
	}
}

type collector struct {
	out  Failures
	seen map[string]struct{}
}

func (c *collector) add(field, reason string) {
	if _, ok := c.seen[field]; ok {
		return
	}
	c.seen[field] = struct{}{}
	c.out = append(c.out, Failure{Field: field, Reason: reason})
}

func (c *collector) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, "is required")
	}
}

func (c *collector) url(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, "is required")
		return
	}
	if !IsAbsoluteURL(value) {
		c.add(field, fmt.Sprintf("must be an absolute http(s) URL (got %q)", value))
	}
}

// id accepts only the canonical text form of a version 7 UUID, the form
// NewID mints.
func (c *collector) id(field, value string) {
	if value == "" {
		c.add(field, "is required")
		return
	}
	parsed, err := uuid.Parse(value)
	switch {
	case err != nil || len(value) != 36:
		c.add(field, fmt.Sprintf("must be a UUID (got %q)", value))
	case parsed.Version() != 7:
		c.add(field, fmt.Sprintf("must be a version 7 UUID (got version %d)", parsed.Version()))
	}
}

// IsAbsoluteURL reports whether value is an http or https URL with a host.
func IsAbsoluteURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	region, err := language.ParseRegion(code)
	return err == nil && region.IsCountry() && region.String() == strings.ToUpper(code)
}

func duplicateName(n int, name func(int) *string) (string, bool) {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		p := name(i)
		if p == nil {
			continue
		}
		if _, ok := seen[*p]; ok {
			return *p, true
		}
		seen[*p] = struct{}{}
	}
	return "", false
}
