// Package handler is the downstream consumer of the events queue.
//
// For every delivery it decodes the envelope, validates the event against the
// configured door policy, serializes it to N-Triples and appends the payload
// to the graph sinks. Invalid or unserializable events are terminated so the
// broker never redelivers them; sink failures are negatively acknowledged and
// retried. Whether a subject already exists in the triple store is not
// checked here: the payload is a pure function of the event, so an upsert
// policy can be layered on top of the sinks.
package handler
