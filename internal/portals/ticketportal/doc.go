// Package ticketportal scrapes concerts from ticketportal.cz.
//
// The catalog is browsed per genre filter. One event page may list several
// dated ticket entries, and each entry becomes its own event. Venue pages are
// visited once per run for the address and map coordinates.
package ticketportal
