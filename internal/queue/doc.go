// Package queue is the boundary between the adapters and the downstream
// consumer.
//
// Every event an adapter produces is wrapped in an Envelope ({"event": ...}),
// tagged with the adapter's name and appended to a SQLite outbox first. The
// Relay then publishes pending rows to a NATS JetStream stream on the subject
// <subject_prefix>.<adapter>, using the event id as the JetStream message id
// so redelivered rows are deduplicated by the server. When no broker is
// configured the outbox is the terminal sink.
//
// The same database holds one schedule snapshot per adapter so `mec status`
// can read dispatcher state from another process, and so a resumable adapter
// picks up its cursor after a restart.
//
// The database is transient storage rather than an archive. Schema changes
// bump schemaVersion in schema.go; users delete the database to adopt them.
package queue
