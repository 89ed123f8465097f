// Package retention removes old journal entries.
//
// A Pruner deletes every entry recorded more than RetentionDays ago,
// optionally archiving them to a JSON file first. A Scheduler runs the
// pruner on a cron expression such as "0 3 * * *" (daily at 3 AM).
package retention
