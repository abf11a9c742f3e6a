// Package ticketmaster implements the Ticketmaster Discovery API adapter.
//
// The API is paged by offset and guarded by a daily quota. Each response
// carries rate-limit headers; a 429 fault defers the next run until the
// declared reset time and keeps the page cursor so the scan resumes.
package ticketmaster
