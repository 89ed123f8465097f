// Package export writes journal entries as JSON or CSV.
package export
