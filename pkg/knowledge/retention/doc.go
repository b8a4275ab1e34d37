// Package retention expires old knowledge base entries.
//
// Entries are never invalidated by the pipeline itself, so a pair resolved
// once (including to a fallback entry) is served from the cache forever.
// The Pruner deletes entries older than a maximum age, which makes the next
// full-mode run reason about those pairs again. The Scheduler runs the
// Pruner on a cron schedule.
package retention
